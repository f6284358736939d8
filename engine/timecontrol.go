package main

import (
	"sync"
	"sync/atomic"
	"time"
)

// GoParams carries the parsed arguments of a UCI `go` command.
type GoParams struct {
	Depth     int
	MoveTime  int64 // ms
	WTime     int64
	BTime     int64
	WInc      int64
	BInc      int64
	MovesToGo int
	Nodes     int64
	Infinite  bool
}

// TimeControl derives a soft and a hard budget from the go parameters and
// answers the two questions the search asks: "start another iteration?"
// (soft) and "abort right now?" (hard). The hard deadline is polled, so a
// bounded slack on top of it is expected.
type TimeControl struct {
	start     time.Time
	softMu    sync.Mutex
	soft      time.Duration // 0 = unbounded; guarded by softMu after start
	hard      time.Duration
	depth     int
	nodeLimit int64
	infinite  bool

	extended atomic.Bool
	stopped  atomic.Bool
}

const defaultMovesToGo = 30

func NewTimeControl(params GoParams, side int, moveOverheadMs int) *TimeControl {
	tc := &TimeControl{
		start:     time.Now(),
		depth:     params.Depth,
		nodeLimit: params.Nodes,
		infinite:  params.Infinite,
	}

	switch {
	case params.Infinite:
		// both budgets unbounded
	case params.MoveTime > 0:
		budget := params.MoveTime - int64(moveOverheadMs)
		if budget < 1 {
			budget = 1
		}
		tc.soft = time.Duration(budget) * time.Millisecond
		tc.hard = tc.soft
	case params.WTime > 0 || params.BTime > 0:
		myTime, myInc := params.WTime, params.WInc
		if side == Black {
			myTime, myInc = params.BTime, params.BInc
		}
		// base = our_time / max(movestogo, 30), plus a conservative 80%
		// share of the increment.
		base := myTime / int64(max(params.MovesToGo, defaultMovesToGo))
		if base < 1 {
			base = 1
		}
		base += myInc * 8 / 10

		ceiling := myTime - int64(moveOverheadMs)
		if ceiling < 1 {
			ceiling = 1
		}
		tc.soft = time.Duration(min(base, ceiling)) * time.Millisecond
		tc.hard = time.Duration(min(2*base, ceiling)) * time.Millisecond
	}
	return tc
}

// unbounded reports a search that only an explicit stop can end.
func (tc *TimeControl) unbounded() bool {
	tc.softMu.Lock()
	soft := tc.soft
	tc.softMu.Unlock()
	return soft == 0 && tc.hard == 0 && tc.depth == 0 && tc.nodeLimit == 0
}

func (tc *TimeControl) Elapsed() time.Duration {
	return time.Since(tc.start)
}

// Stop raises the cooperative cancel flag; workers observe it at their
// polling sites and unwind.
func (tc *TimeControl) Stop() {
	tc.stopped.Store(true)
}

func (tc *TimeControl) Stopped() bool {
	return tc.stopped.Load()
}

// ShouldStop is the hard-budget poll called inside the search.
func (tc *TimeControl) ShouldStop(nodes int64) bool {
	if tc.stopped.Load() {
		return true
	}
	if tc.nodeLimit > 0 && nodes >= tc.nodeLimit {
		tc.stopped.Store(true)
		return true
	}
	if tc.hard > 0 && tc.Elapsed() > tc.hard {
		tc.stopped.Store(true)
		return true
	}
	return false
}

// ShouldStartIteration is the soft-budget check between iterations.
func (tc *TimeControl) ShouldStartIteration(nextDepth int) bool {
	if tc.stopped.Load() {
		return false
	}
	if tc.depth > 0 && nextDepth > tc.depth {
		return false
	}
	if nextDepth > maxSearchDepth {
		return false
	}
	tc.softMu.Lock()
	soft := tc.soft
	tc.softMu.Unlock()
	if soft > 0 && tc.Elapsed() > soft {
		return false
	}
	return true
}

// ExtendOnBestMoveChange grants a one-time 50% soft extension when the root
// best move flips between completed iterations, capped at the hard budget.
func (tc *TimeControl) ExtendOnBestMoveChange() {
	tc.softMu.Lock()
	defer tc.softMu.Unlock()
	if tc.soft == 0 || tc.extended.Swap(true) {
		return
	}
	extended := tc.soft + tc.soft/2
	if tc.hard > 0 && extended > tc.hard {
		extended = tc.hard
	}
	tc.soft = extended
}
