package main

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	chess "github.com/corentings/chess/v2"
)

var alog = slog.Default().With("component", "analysis")

type MoveClassification int

const (
	Neutral MoveClassification = iota
	Blunder
	Questionable
	Good
	Best
)

func (c MoveClassification) String() string {
	return []string{"Neutral", "Blunder", "Questionable", "Good", "Best"}[c]
}

var classificationSymbols = map[MoveClassification]string{
	Blunder:      "??",
	Questionable: "?",
	Good:         "!",
	Best:         "",
	Neutral:      "",
}

// MoveAnalysis is one half-move's verdict. Scores are centipawns from the
// perspective of the player who made the move.
type MoveAnalysis struct {
	MoveNumber           int     `json:"moveNumber"`
	Color                string  `json:"color"`
	MoveSAN              string  `json:"moveSan"`
	MoveUCI              string  `json:"moveUci"`
	Score                int     `json:"score"`
	BestMove             string  `json:"bestMove"`
	BestMoveSAN          string  `json:"bestMoveSan"`
	BestMoveScore        int     `json:"bestMoveScore"`
	CentipawnLoss        int     `json:"centipawnLoss"`
	WinningProbability   float64 `json:"winningProbability"`
	Classification       string  `json:"classification"`
	ClassificationSymbol string  `json:"classificationSymbol"`
	IsBestMove           bool    `json:"isBestMove"`
}

// winningProbability converts a centipawn score to a win probability with
// the usual logistic squash.
func winningProbability(score int) float64 {
	return 1.0 / (1.0 + math.Exp(-float64(score)/100.0))
}

func classifyByLoss(cpLoss int, isBest bool) MoveClassification {
	switch {
	case isBest:
		return Best
	case cpLoss >= 200:
		return Blunder
	case cpLoss >= 100:
		return Questionable
	case cpLoss <= 10:
		return Good
	default:
		return Neutral
	}
}

// gameAnalyzer searches every position of a replayed game with a private
// transposition table, so concurrent analyses never fight over the engine's
// main hash.
type gameAnalyzer struct {
	tt    *TranspositionTable
	style StyleProfile
	depth int
}

func newGameAnalyzer(depth int, style StyleProfile) *gameAnalyzer {
	if depth < 1 {
		depth = 1
	}
	if depth > maxSearchDepth {
		depth = maxSearchDepth
	}
	return &gameAnalyzer{
		tt:    NewTranspositionTable(32),
		style: style,
		depth: depth,
	}
}

// searchFEN runs a fixed-depth search on a FEN and returns the score from
// the side to move's perspective plus the best move.
func (a *gameAnalyzer) searchFEN(fen string) (int, Move, error) {
	pos := &Position{}
	if err := pos.SetFEN(fen); err != nil {
		return 0, NullMove, err
	}
	if !pos.hasLegalMoves() {
		if pos.inCheck() {
			return matedIn(0), NullMove, nil
		}
		return 0, NullMove, nil
	}
	a.tt.NextAge()
	tc := NewTimeControl(GoParams{Depth: a.depth}, pos.side, 0)
	s := newSearcher(pos, a.tt, tc, a.style)
	best, score := s.iterate(nil)
	return score, best, nil
}

// AnalyzeGame replays a PGN and scores every move: search the position
// before the move for the best line, search the position after it for the
// played line, and report the centipawn gap.
func AnalyzeGame(pgn string, depth, maxPlies int, style StyleProfile) ([]MoveAnalysis, error) {
	if strings.TrimSpace(pgn) == "" {
		return nil, fmt.Errorf("empty PGN")
	}
	pgnOpt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("parsing PGN: %w", err)
	}
	game := chess.NewGame(pgnOpt)
	moves := game.Moves()
	positions := game.Positions()
	if len(positions) != len(moves)+1 {
		return nil, fmt.Errorf("inconsistent game: %d moves, %d positions", len(moves), len(positions))
	}
	if maxPlies > 0 && len(moves) > maxPlies {
		moves = moves[:maxPlies]
	}

	analyzer := newGameAnalyzer(depth, style)
	results := make([]MoveAnalysis, 0, len(moves))

	for i, move := range moves {
		before := positions[i]
		after := positions[i+1]

		bestScore, bestMove, err := analyzer.searchFEN(before.String())
		if err != nil {
			return nil, fmt.Errorf("analyzing move %d: %w", i+1, err)
		}
		// Score of the played move: the opponent's best reply, negated.
		afterScore, _, err := analyzer.searchFEN(after.String())
		if err != nil {
			return nil, fmt.Errorf("analyzing move %d: %w", i+1, err)
		}
		playedScore := -afterScore

		moveUCI := chess.UCINotation{}.Encode(before, move)
		moveSAN := chess.AlgebraicNotation{}.Encode(before, move)

		isBest := bestMove != NullMove && bestMove.String() == moveUCI
		cpLoss := bestScore - playedScore
		if cpLoss < 0 {
			cpLoss = 0
		}
		if isBest {
			cpLoss = 0
			playedScore = bestScore
		}
		classification := classifyByLoss(cpLoss, isBest)

		entry := MoveAnalysis{
			MoveNumber:           i/2 + 1,
			Color:                "White",
			MoveSAN:              moveSAN,
			MoveUCI:              moveUCI,
			Score:                playedScore,
			BestMove:             bestMove.String(),
			BestMoveScore:        bestScore,
			CentipawnLoss:        cpLoss,
			WinningProbability:   winningProbability(playedScore),
			Classification:       classification.String(),
			ClassificationSymbol: classificationSymbols[classification],
			IsBestMove:           isBest,
		}
		if i%2 == 1 {
			entry.Color = "Black"
		}
		if bestMove != NullMove {
			if decoded, err := (chess.UCINotation{}).Decode(before, bestMove.String()); err == nil {
				entry.BestMoveSAN = chess.AlgebraicNotation{}.Encode(before, decoded)
			}
		}
		results = append(results, entry)
	}

	alog.Info("game analyzed", "plies", len(results), "depth", depth)
	return results, nil
}
