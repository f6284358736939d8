package main

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Options mirrors the UCI option set. Values are validated at the UCI
// boundary; the engine trusts them.
type Options struct {
	HashMB            int
	Threads           int
	MoveOverheadMs    int
	MultiPV           int
	SyzygyPath        string
	BookFile          string
	Style             string
	UseExperienceBook bool
}

func DefaultOptions() Options {
	return Options{
		HashMB:         64,
		Threads:        1,
		MoveOverheadMs: 80,
		MultiPV:        1,
		Style:          "Normal",
	}
}

// InfoLine is one iteration's report, rendered as a UCI info line by the
// UCI loop and as JSON by the analysis server.
type InfoLine struct {
	Depth    int      `json:"depth"`
	Seldepth int      `json:"seldepth"`
	MultiPV  int      `json:"multipv"`
	ScoreCP  int      `json:"score_cp"`
	MateIn   int      `json:"mate_in,omitempty"` // moves, signed; 0 = not a mate score
	TimeMs   int64    `json:"time_ms"`
	Nodes    int64    `json:"nodes"`
	NPS      int64    `json:"nps"`
	Hashfull int      `json:"hashfull"`
	PV       []string `json:"pv"`
}

func (info InfoLine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d multipv %d score ", info.Depth, info.Seldepth, info.MultiPV)
	if info.MateIn != 0 {
		fmt.Fprintf(&sb, "mate %d", info.MateIn)
	} else {
		fmt.Fprintf(&sb, "cp %d", info.ScoreCP)
	}
	fmt.Fprintf(&sb, " time %d nodes %d nps %d hashfull %d pv %s",
		info.TimeMs, info.Nodes, info.NPS, info.Hashfull, strings.Join(info.PV, " "))
	return sb.String()
}

// SearchResult is the outcome of one `go`.
type SearchResult struct {
	Best   Move
	Ponder Move
	Score  int
	Depth  int
	Nodes  int64
}

// Engine owns the game position, the shared transposition table and the
// option store. One search runs at a time; Stop cancels it.
type Engine struct {
	mu   sync.Mutex
	pos  *Position
	tt   *TranspositionTable
	opts Options

	searching atomic.Bool
	tc        *TimeControl
	tcMu      sync.Mutex

	infoSink func(InfoLine)
	config   *ConfigStore
}

func NewEngine(config *ConfigStore) *Engine {
	opts := DefaultOptions()
	cfg := config.Get()
	if cfg.HashMB > 0 {
		opts.HashMB = cfg.HashMB
	}
	if cfg.Threads > 0 {
		opts.Threads = cfg.Threads
	}
	return &Engine{
		pos:    NewPosition(),
		tt:     NewTranspositionTable(opts.HashMB),
		opts:   opts,
		config: config,
	}
}

func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

func (e *Engine) SetInfoSink(sink func(InfoLine)) {
	e.infoSink = sink
}

// ResizeHash reallocates the TT. Clears it as a side effect, per the UCI
// Hash option contract. Rejected while a search is running.
func (e *Engine) ResizeHash(mb int) {
	if e.searching.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.HashMB = mb
	e.tt = NewTranspositionTable(mb)
}

func (e *Engine) SetThreads(n int)         { e.mu.Lock(); e.opts.Threads = n; e.mu.Unlock() }
func (e *Engine) SetMoveOverhead(ms int)   { e.mu.Lock(); e.opts.MoveOverheadMs = ms; e.mu.Unlock() }
func (e *Engine) SetMultiPV(n int)         { e.mu.Lock(); e.opts.MultiPV = n; e.mu.Unlock() }
func (e *Engine) SetStyle(name string)     { e.mu.Lock(); e.opts.Style = name; e.mu.Unlock() }
func (e *Engine) SetSyzygyPath(p string)   { e.mu.Lock(); e.opts.SyzygyPath = p; e.mu.Unlock() }
func (e *Engine) SetBookFile(p string)     { e.mu.Lock(); e.opts.BookFile = p; e.mu.Unlock() }
func (e *Engine) SetExperienceBook(v bool) { e.mu.Lock(); e.opts.UseExperienceBook = v; e.mu.Unlock() }

func (e *Engine) style() StyleProfile {
	if profile, ok := styleProfiles[e.opts.Style]; ok {
		return profile
	}
	return styleProfiles["Normal"]
}

// NewGame clears everything that carries over between games: the TT and
// the repetition history. Per-search state (killers, history,
// countermoves) is recreated for every search anyway.
func (e *Engine) NewGame() {
	if e.searching.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
	e.pos = NewPosition()
}

// SetPosition installs a FEN (or the start position for fen == "") and
// applies the given UCI moves. Errors leave the previous position intact.
func (e *Engine) SetPosition(fen string, moves []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := NewPosition()
	if fen != "" {
		if err := next.SetFEN(fen); err != nil {
			return err
		}
	}
	for _, text := range moves {
		m := next.findMove(text)
		if m == NullMove {
			return fmt.Errorf("illegal move %q in position command", text)
		}
		next.Apply(m)
	}
	e.pos = next
	return nil
}

func (e *Engine) Position() *Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos.Clone()
}

// Stop raises the cancel flag of the running search, if any.
func (e *Engine) Stop() {
	e.tcMu.Lock()
	defer e.tcMu.Unlock()
	if e.tc != nil {
		e.tc.Stop()
	}
}

func (e *Engine) IsSearching() bool {
	return e.searching.Load()
}

// SearchIsUnbounded reports whether the in-flight search has no depth,
// node, or time limit of its own.
func (e *Engine) SearchIsUnbounded() bool {
	e.tcMu.Lock()
	defer e.tcMu.Unlock()
	return e.tc != nil && e.tc.unbounded()
}

type workerResult struct {
	best  Move
	score int
	depth int
}

// Search runs one `go`: it blocks until the budget expires or Stop is
// called, and always returns a legal best move when one exists.
func (e *Engine) Search(params GoParams) SearchResult {
	if !e.searching.CompareAndSwap(false, true) {
		return SearchResult{}
	}
	defer e.searching.Store(false)

	e.mu.Lock()
	root := e.pos.Clone()
	tt := e.tt
	opts := e.opts
	style := e.style()
	e.mu.Unlock()

	tc := NewTimeControl(params, root.side, opts.MoveOverheadMs)
	e.tcMu.Lock()
	e.tc = tc
	e.tcMu.Unlock()

	tt.NextAge()

	excluded := map[Move]bool{}
	var result SearchResult
	multiPV := max(opts.MultiPV, 1)
	for pvIndex := 1; pvIndex <= multiPV; pvIndex++ {
		res, ok := e.searchOnePV(root, tt, tc, style, opts.Threads, pvIndex, excluded)
		if pvIndex == 1 {
			result = res
		}
		if !ok || tc.Stopped() {
			break
		}
		excluded[res.Best] = true
	}

	e.tcMu.Lock()
	e.tc = nil
	e.tcMu.Unlock()
	return result
}

// searchOnePV broadcasts one root job to the worker fleet and collects the
// deepest completed result. Workers past the first get a perturbed
// aspiration window so the trees diverge.
func (e *Engine) searchOnePV(root *Position, tt *TranspositionTable, tc *TimeControl,
	style StyleProfile, threads, pvIndex int, excluded map[Move]bool) (SearchResult, bool) {

	if threads < 1 {
		threads = 1
	}
	results := make([]workerResult, threads)
	allStats := make([]*SearchStats, threads)
	var done sync.WaitGroup

	cfg := e.config.Get()

	for w := 0; w < threads; w++ {
		done.Add(1)
		go func(id int) {
			defer done.Done()
			s := newSearcher(root.Clone(), tt, tc, style)
			s.diversityDelta = id * 16
			if len(excluded) > 0 {
				s.excludedRoot = excluded
			}
			allStats[id] = s.stats

			var onIteration func(iterationResult)
			if id == 0 {
				onIteration = func(it iterationResult) {
					e.publishInfo(it, s.stats, tt, tc, pvIndex)
				}
			}
			best, score := s.iterate(onIteration)
			results[id] = workerResult{best: best, score: score, depth: s.stats.CompletedDepths}
		}(w)
	}
	done.Wait()

	// Deepest worker wins; ties go to the better score.
	var chosen workerResult
	for _, r := range results {
		if r.best == NullMove {
			continue
		}
		if r.depth > chosen.depth || (r.depth == chosen.depth && r.score > chosen.score) ||
			chosen.best == NullMove {
			chosen = r
		}
	}

	total := &SearchStats{Start: tc.start}
	for _, st := range allStats {
		if st != nil {
			total.add(st)
		}
	}
	if cfg.LogSearchStats {
		logSearchStats("go", total, tt)
	}

	if chosen.best == NullMove {
		// Not even the first root move completed anywhere. Salvage: report
		// the static eval with any legal move so the GUI always gets a
		// valid bestmove.
		legal := root.GenerateLegalMoves()
		for _, m := range legal {
			if !excluded[m] {
				return SearchResult{Best: m, Score: root.Evaluate(style), Nodes: total.Nodes}, false
			}
		}
		return SearchResult{}, false
	}

	result := SearchResult{
		Best:  chosen.best,
		Score: chosen.score,
		Depth: chosen.depth,
		Nodes: total.Nodes + total.QNodes,
	}

	// Ponder move: second move of the TT principal variation.
	ponderSearcher := newSearcher(root.Clone(), tt, nil, style)
	if pv := ponderSearcher.pvFromTT(2); len(pv) >= 2 && pv[0] == chosen.best {
		result.Ponder = pv[1]
	}
	return result, true
}

func (e *Engine) publishInfo(it iterationResult, stats *SearchStats, tt *TranspositionTable,
	tc *TimeControl, pvIndex int) {

	elapsed := tc.Elapsed()
	nodes := stats.Nodes + stats.QNodes
	nps := int64(0)
	if elapsed > 0 {
		nps = int64(float64(nodes) / elapsed.Seconds())
	}

	info := InfoLine{
		Depth:    it.depth,
		Seldepth: max(stats.Seldepth, it.depth),
		MultiPV:  pvIndex,
		TimeMs:   elapsed.Milliseconds(),
		Nodes:    nodes,
		NPS:      nps,
		Hashfull: tt.Hashfull(),
	}
	if isMateScore(it.score) {
		plies := scoreMate - it.score
		if it.score < 0 {
			plies = scoreMate + it.score
		}
		mateMoves := (plies + 1) / 2
		if it.score < 0 {
			mateMoves = -mateMoves
		}
		info.MateIn = mateMoves
	} else {
		info.ScoreCP = it.score
	}
	for _, m := range it.pv {
		info.PV = append(info.PV, m.String())
	}
	if len(info.PV) == 0 && it.best != NullMove {
		info.PV = append(info.PV, it.best.String())
	}

	if e.infoSink != nil {
		e.infoSink(info)
	} else {
		fmt.Println(info.String())
	}
}
