package main

import (
	"math"
	"time"
)

const (
	maxSearchDepth = 128

	scoreInfinite      = 31000
	scoreMate          = 30000
	scoreMateThreshold = scoreMate - 2*maxSearchDepth

	aspirationStartDepth   = 5
	aspirationInitialDelta = 50

	nullMoveMinDepth  = 3
	lmrMinDepth       = 3
	lmrMinMoveIndex   = 4
	maxCheckExtension = 16

	deltaPruneMargin = 200

	stopPollNodes  = 1024
	qstopPollNodes = 2048
)

// futilityMargin[d] is added to the static eval at frontier depths; quiet
// non-checking moves are skipped individually when it cannot reach alpha.
var futilityMargin = [3]int{0, 200, 300}

var lmrTable [maxSearchDepth + 1][64]int

func initLMR() {
	for d := 1; d <= maxSearchDepth; d++ {
		for i := 1; i < 64; i++ {
			r := int(math.Floor(0.75 + math.Log(float64(d))*math.Log(float64(i))/2.25))
			if r < 0 {
				r = 0
			}
			lmrTable[d][i] = r
		}
	}
}

func mateIn(ply int) int  { return scoreMate - ply }
func matedIn(ply int) int { return -scoreMate + ply }

func isMateScore(score int) bool {
	return score >= scoreMateThreshold || score <= -scoreMateThreshold
}

// searcher is one worker's private search state. The TT is the only piece
// of shared state it touches.
type searcher struct {
	pos   *Position
	tt    *TranspositionTable
	tc    *TimeControl
	stats *SearchStats
	style StyleProfile

	killers  [maxSearchDepth + 2][2]Move
	history  [2][6][64]int
	counters [2][6][64]Move
	moveAt   [maxSearchDepth + 2]Move // move that was played to reach each ply

	excludedRoot map[Move]bool

	rootBest      Move
	rootScore     int
	rootCompleted bool // the first root move of the current iteration finished
	unstable      bool // best move changed mid-iteration
	prevUnstable  bool

	nodesSincePoll int64
	aborted        bool

	// diversityDelta widens the initial aspiration window per worker so
	// lazy-SMP threads do not all walk the identical tree.
	diversityDelta int
}

func newSearcher(pos *Position, tt *TranspositionTable, tc *TimeControl, style StyleProfile) *searcher {
	return &searcher{
		pos:   pos,
		tt:    tt,
		tc:    tc,
		stats: &SearchStats{Start: time.Now()},
		style: style,
	}
}

func (s *searcher) checkStop() bool {
	if s.aborted {
		return true
	}
	s.nodesSincePoll++
	if s.nodesSincePoll >= stopPollNodes {
		s.nodesSincePoll = 0
		if s.tc != nil && s.tc.ShouldStop(s.stats.Nodes+s.stats.QNodes) {
			s.aborted = true
		}
	}
	return s.aborted
}

// iterationResult is what one completed depth hands back to the driver.
type iterationResult struct {
	depth int
	score int
	best  Move
	pv    []Move
}

// iterate runs the iterative-deepening loop with aspiration windows,
// invoking onIteration after every completed depth. It returns the best
// fully-confirmed move and score.
func (s *searcher) iterate(onIteration func(iterationResult)) (Move, int) {
	var best Move
	bestScore := -scoreInfinite
	prevScore := 0
	prevBest := NullMove

	for depth := 1; depth <= maxSearchDepth; depth++ {
		if s.tc != nil && !s.tc.ShouldStartIteration(depth) {
			break
		}
		s.unstable = false
		s.rootCompleted = false

		score := s.aspirationSearch(depth, prevScore)
		if s.aborted && !s.rootCompleted {
			// Nothing from this depth is trustworthy.
			break
		}

		prevScore = score
		best = s.rootBest
		bestScore = score
		s.prevUnstable = s.unstable
		s.stats.CompletedDepths = depth
		s.stats.DepthDurations = append(s.stats.DepthDurations, time.Since(s.stats.Start))

		if onIteration != nil {
			onIteration(iterationResult{
				depth: depth,
				score: score,
				best:  best,
				pv:    s.pvFromTT(depth),
			})
		}

		if prevBest != NullMove && prevBest != best && s.tc != nil {
			s.tc.ExtendOnBestMoveChange()
		}
		prevBest = best

		if s.aborted {
			break
		}
		// A proven mate does not get deeper by searching longer.
		if isMateScore(score) && s.tc != nil && s.tc.depth == 0 {
			break
		}
	}
	return best, bestScore
}

func (s *searcher) aspirationSearch(depth, prevScore int) int {
	alpha, beta := -scoreInfinite, scoreInfinite
	delta := aspirationInitialDelta + s.diversityDelta

	// An unstable previous iteration makes its score a poor window center.
	if depth >= aspirationStartDepth && !isMateScore(prevScore) && !s.prevUnstable {
		alpha = max(prevScore-delta, -scoreInfinite)
		beta = min(prevScore+delta, scoreInfinite)
	}

	for {
		// Each re-search must finish its own first move before its score counts.
		s.rootCompleted = false
		score := s.searchRoot(depth, alpha, beta)
		if s.aborted {
			return score
		}
		switch {
		case score <= alpha:
			alpha = max(score-delta, -scoreInfinite)
			delta *= 2
		case score >= beta:
			beta = min(score+delta, scoreInfinite)
			delta *= 2
		default:
			return score
		}
		if delta >= scoreInfinite/2 {
			alpha, beta = -scoreInfinite, scoreInfinite
		}
	}
}

// orderedRootMoves sorts the root move list: previous best first, then
// captures by MVV-LVA with SEE tiebreak, then quiets by history.
func (s *searcher) orderedRootMoves() []Move {
	moves := s.pos.GenerateLegalMoves()
	if len(s.excludedRoot) > 0 {
		kept := moves[:0]
		for _, m := range moves {
			if !s.excludedRoot[m] {
				kept = append(kept, m)
			}
		}
		moves = kept
	}

	ttMove := uint16(0)
	if probe := s.tt.Probe(s.pos.key, 0, 0, -scoreInfinite, scoreInfinite); probe.hit {
		ttMove = probe.move
	}
	s.sortMoves(moves, ttMove, 0)

	if s.rootBest != NullMove {
		for i, m := range moves {
			if m == s.rootBest {
				copy(moves[1:i+1], moves[:i])
				moves[0] = s.rootBest
				break
			}
		}
	}
	return moves
}

func (s *searcher) searchRoot(depth, alpha, beta int) int {
	moves := s.orderedRootMoves()
	if len(moves) == 0 {
		if s.pos.inCheck() {
			return matedIn(0)
		}
		return 0
	}

	bestScore := -scoreInfinite
	var bestMove Move

	for i, m := range moves {
		undo := s.pos.Apply(m)
		s.moveAt[0] = m
		var score int
		if i == 0 {
			score = -s.negamax(depth-1, -beta, -alpha, 1, true, 0)
		} else {
			score = -s.negamax(depth-1, -alpha-1, -alpha, 1, false, 0)
			if score > alpha && score < beta && !s.aborted {
				score = -s.negamax(depth-1, -beta, -alpha, 1, true, 0)
			}
		}
		s.pos.Undo(m, undo)

		if s.aborted && i == 0 {
			// Timeout inside the very first move: its score is unusable.
			return bestScore
		}

		if score > bestScore {
			bestScore = score
			if bestMove != NullMove && m != bestMove {
				s.unstable = true
			}
			bestMove = m
			s.rootBest = m
			s.rootScore = score
		}
		if i == 0 {
			s.rootCompleted = true
		}
		if bestScore > alpha {
			alpha = bestScore
		}
		if alpha >= beta {
			break
		}
		if s.aborted {
			break
		}
	}

	if !s.aborted {
		bound := boundExact
		if bestScore >= beta {
			bound = boundLower
		}
		s.tt.Store(s.pos.key, bestMove.compact(), bestScore, depth, 0, bound)
		s.stats.TTStores++
	}
	return bestScore
}

func (s *searcher) negamax(depth, alpha, beta, ply int, isPV bool, checkExts int) int {
	if s.checkStop() {
		return 0
	}

	pos := s.pos

	// Draws are adjudicated before anything else; a repetition inside the
	// search tree scores as an immediate draw.
	if pos.isDrawn() {
		return 0
	}
	if ply >= maxSearchDepth {
		return pos.Evaluate(s.style)
	}

	if depth <= 0 {
		return s.qsearch(alpha, beta, ply)
	}

	s.stats.Nodes++
	alphaOrig := alpha

	s.stats.TTProbes++
	probe := s.tt.Probe(pos.key, depth, ply, alpha, beta)
	if probe.hit {
		s.stats.TTHits++
		if probe.cutoff && !isPV {
			s.stats.TTCuts++
			return probe.score
		}
	}
	ttMove := probe.move

	inCheck := pos.inCheck()

	staticEval := 0
	haveStatic := false
	if !inCheck {
		staticEval = pos.Evaluate(s.style)
		haveStatic = true
	}

	// Null-move pruning: hand the opponent a free move; if the position
	// still fails high the real search would too. Unsound in check and in
	// pawn endings (zugzwang), so both are excluded.
	if !isPV && !inCheck && depth >= nullMoveMinDepth &&
		pos.hasNonPawnMaterial() && haveStatic && staticEval >= beta {
		reduction := 2
		if depth >= 6 {
			reduction = 3
		}
		undo := pos.ApplyNull()
		s.moveAt[ply] = NullMove
		score := -s.negamax(depth-1-reduction, -beta, -beta+1, ply+1, false, checkExts)
		pos.UndoNull(undo)
		if s.aborted {
			return 0
		}
		if score >= beta {
			s.stats.NullCutoffs++
			if isMateScore(score) {
				score = beta
			}
			return score
		}
	}

	futile := false
	if !isPV && !inCheck && depth <= 2 && haveStatic &&
		staticEval+futilityMargin[depth] <= alpha {
		futile = true
	}

	// Internal iterative reduction: a PV node with no TT move gets one ply
	// shallower rather than paying for an internal search.
	if isPV && depth >= 4 && ttMove == 0 {
		depth--
	}

	moves := pos.GenerateLegalMoves()
	if len(moves) == 0 {
		if inCheck {
			return matedIn(ply)
		}
		return 0
	}

	s.sortMoves(moves, ttMove, ply)

	bestScore := -scoreInfinite
	var bestMove Move
	searched := 0
	var quietsTried []Move

	for i, m := range moves {
		undo := pos.Apply(m)
		givesCheck := pos.inCheck()

		if futile && m.IsQuiet() && !givesCheck {
			pos.Undo(m, undo)
			s.stats.FutilePrunes++
			continue
		}

		ext := 0
		if givesCheck && checkExts < maxCheckExtension {
			ext = 1
		}

		s.moveAt[ply] = m
		newDepth := depth - 1 + ext

		var score int
		if searched == 0 {
			score = -s.negamax(newDepth, -beta, -alpha, ply+1, isPV, checkExts+ext)
		} else {
			reduction := 0
			if depth >= lmrMinDepth && i >= lmrMinMoveIndex &&
				m.IsQuiet() && !givesCheck && !inCheck {
				reduction = lmrTable[depth][min(i, 63)]
				if reduction > depth-1 {
					reduction = depth - 1
				}
			}
			score = -s.negamax(newDepth-reduction, -alpha-1, -alpha, ply+1, false, checkExts+ext)
			if score > alpha && reduction > 0 && !s.aborted {
				s.stats.LMRResearch++
				score = -s.negamax(newDepth, -alpha-1, -alpha, ply+1, false, checkExts+ext)
			}
			if score > alpha && score < beta && isPV && !s.aborted {
				score = -s.negamax(newDepth, -beta, -alpha, ply+1, true, checkExts+ext)
			}
		}
		pos.Undo(m, undo)
		searched++

		if s.aborted {
			// Partial results below this node are unreliable; bestScore is
			// only kept if at least one move fully completed.
			if searched <= 1 {
				return 0
			}
			break
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
		}
		if bestScore > alpha {
			alpha = bestScore
		}
		if alpha >= beta {
			s.stats.BetaCutoffs++
			if m.IsQuiet() {
				s.recordKiller(ply, m)
				s.recordCountermove(ply, m)
				s.updateHistory(m, depth, quietsTried)
			}
			if !s.aborted {
				s.tt.Store(pos.key, m.compact(), bestScore, depth, ply, boundLower)
				s.stats.TTStores++
			}
			return bestScore
		}
		if m.IsQuiet() {
			quietsTried = append(quietsTried, m)
		}
	}

	if searched == 0 {
		// Every move was futility-pruned. There were legal moves, so this
		// is a fail-low, never a mate.
		return alpha
	}

	if !s.aborted {
		bound := boundExact
		if bestScore <= alphaOrig {
			bound = boundUpper
		}
		s.tt.Store(pos.key, bestMove.compact(), bestScore, depth, ply, bound)
		s.stats.TTStores++
	}
	return bestScore
}

func (s *searcher) qsearch(alpha, beta, ply int) int {
	s.stats.QNodes++
	if ply > s.stats.Seldepth {
		s.stats.Seldepth = ply
	}
	if s.stats.QNodes%qstopPollNodes == 0 {
		if s.tc != nil && s.tc.ShouldStop(s.stats.Nodes+s.stats.QNodes) {
			s.aborted = true
		}
	}
	if s.aborted {
		return 0
	}

	pos := s.pos
	if pos.isDrawn() {
		return 0
	}
	if ply >= maxSearchDepth {
		return pos.EvaluateFast()
	}

	inCheck := pos.inCheck()

	var moves []Move
	standPat := 0
	if inCheck {
		// Evasion search: every legal move, no stand-pat.
		moves = pos.GenerateLegalMoves()
		if len(moves) == 0 {
			return matedIn(ply)
		}
	} else {
		standPat = pos.EvaluateFast()
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
		moves = pos.GenerateCaptures()
	}

	s.sortMoves(moves, 0, ply)

	bestScore := standPat
	if inCheck {
		bestScore = -scoreInfinite
	}

	for _, m := range moves {
		if !inCheck && m.IsCapture() {
			victim := m.Captured()
			if m.IsEnPassant() {
				victim = Pawn
			}
			if standPat+seeValue[victim]+deltaPruneMargin < alpha {
				continue
			}
			if pos.see(m) < 0 {
				continue
			}
		}

		undo := pos.Apply(m)
		score := -s.qsearch(-beta, -alpha, ply+1)
		pos.Undo(m, undo)

		if s.aborted {
			return 0
		}
		if score > bestScore {
			bestScore = score
		}
		if bestScore > alpha {
			alpha = bestScore
		}
		if alpha >= beta {
			return bestScore
		}
	}
	return bestScore
}

const (
	orderTTMove  = 1 << 30
	orderCapture = 1 << 24
	orderKiller1 = 1 << 22
	orderKiller2 = 1<<22 - 1
	orderCounter = 1 << 21
)

// sortMoves orders in place: TT move, captures/promotions by MVV-LVA with a
// SEE tiebreak, killers, the countermove, then quiets by history.
func (s *searcher) sortMoves(moves []Move, ttMove uint16, ply int) {
	scores := make([]int, len(moves))
	mover := s.pos.side

	var counter Move
	if ply > 0 {
		prev := s.moveAt[ply-1]
		if prev != NullMove {
			counter = s.counters[opposite(mover)][prev.Piece()][prev.To()]
		}
	}

	for i, m := range moves {
		switch {
		case m.matchesCompact(ttMove):
			scores[i] = orderTTMove
		case m.IsCapture() || m.IsPromotion():
			victim := Pawn
			if m.Captured() != pieceNone {
				victim = m.Captured()
			}
			score := orderCapture + 10*seeValue[victim] - seeValue[m.Piece()]
			if m.IsPromotion() {
				score += seeValue[m.Promotion()]
			}
			score += s.pos.see(m) >> 4
			scores[i] = score
		case m == s.killers[ply][0]:
			scores[i] = orderKiller1
		case m == s.killers[ply][1]:
			scores[i] = orderKiller2
		case m == counter && counter != NullMove:
			scores[i] = orderCounter
		default:
			scores[i] = s.history[mover][m.Piece()][m.To()]
		}
	}

	sortMovesByScore(moves, scores)
}

// sortMovesByScore is a paired insertion sort; move lists are short and
// mostly ordered already, which insertion sort exploits.
func sortMovesByScore(moves []Move, scores []int) {
	for i := 1; i < len(moves); i++ {
		m, sc := moves[i], scores[i]
		j := i - 1
		for j >= 0 && scores[j] < sc {
			moves[j+1], scores[j+1] = moves[j], scores[j]
			j--
		}
		moves[j+1], scores[j+1] = m, sc
	}
}

func (s *searcher) recordKiller(ply int, m Move) {
	if s.killers[ply][0] != m {
		s.killers[ply][1] = s.killers[ply][0]
		s.killers[ply][0] = m
	}
}

func (s *searcher) recordCountermove(ply int, m Move) {
	if ply == 0 {
		return
	}
	prev := s.moveAt[ply-1]
	if prev == NullMove {
		return
	}
	s.counters[opposite(s.pos.side)][prev.Piece()][prev.To()] = m
}

// updateHistory rewards the cutoff move with depth² and mildly decays the
// quiets that were tried before it and failed.
func (s *searcher) updateHistory(m Move, depth int, quietsTried []Move) {
	bonus := depth * depth
	mover := s.pos.side
	entry := &s.history[mover][m.Piece()][m.To()]
	*entry += bonus
	if *entry > orderCounter/2 {
		*entry = orderCounter / 2
	}
	malus := bonus / 4
	if malus == 0 {
		malus = 1
	}
	for _, q := range quietsTried {
		e := &s.history[mover][q.Piece()][q.To()]
		*e -= malus
		if *e < 0 {
			*e = 0
		}
	}
}

// pvFromTT reconstructs the principal variation by walking TT best moves
// until a miss, an illegal or repeated position, or the depth bound.
func (s *searcher) pvFromTT(depth int) []Move {
	pos := s.pos.Clone()
	var pv []Move
	seen := map[uint64]bool{}
	for len(pv) < depth {
		if seen[pos.key] {
			break
		}
		seen[pos.key] = true
		probe := s.tt.Probe(pos.key, 0, 0, -scoreInfinite, scoreInfinite)
		if !probe.hit || probe.move == 0 {
			break
		}
		var next Move
		for _, m := range pos.GenerateLegalMoves() {
			if m.matchesCompact(probe.move) {
				next = m
				break
			}
		}
		if next == NullMove {
			break
		}
		pos.Apply(next)
		pv = append(pv, next)
	}
	return pv
}
