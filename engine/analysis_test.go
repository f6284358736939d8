package main

import (
	"strings"
	"testing"
)

const scholarsMatePGN = `[Event "test"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "w"]
[Black "b"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0`

func TestAnalyzeGameScoresEveryPly(t *testing.T) {
	if testing.Short() {
		t.Skip("game analysis is slow in short mode")
	}
	moves, err := AnalyzeGame(scholarsMatePGN, 3, 0, styleProfiles["Normal"])
	if err != nil {
		t.Fatalf("AnalyzeGame: %v", err)
	}
	if len(moves) != 7 {
		t.Fatalf("scholar's mate has 7 plies, got %d", len(moves))
	}
	for i, m := range moves {
		wantColor := "White"
		if i%2 == 1 {
			wantColor = "Black"
		}
		if m.Color != wantColor {
			t.Fatalf("ply %d: color %q, want %q", i, m.Color, wantColor)
		}
		if m.MoveUCI == "" || m.MoveSAN == "" {
			t.Fatalf("ply %d: missing move text: %+v", i, m)
		}
		if len(m.MoveUCI) < 4 {
			t.Fatalf("ply %d: UCI text %q malformed", i, m.MoveUCI)
		}
	}
	if moves[0].MoveUCI != "e2e4" {
		t.Fatalf("first move should be e2e4, got %q", moves[0].MoveUCI)
	}
	// 3... Nf6 ignores the mate threat; the engine must flag a large loss.
	if moves[5].CentipawnLoss < 100 {
		t.Fatalf("3...Nf6 should register a big centipawn loss, got %d", moves[5].CentipawnLoss)
	}
}

func TestAnalyzeGameRejectsEmptyPGN(t *testing.T) {
	if _, err := AnalyzeGame("   ", 2, 0, styleProfiles["Normal"]); err == nil {
		t.Fatalf("empty PGN must be rejected")
	}
}

func TestAnalyzeGameRespectsPlyCap(t *testing.T) {
	if testing.Short() {
		t.Skip("game analysis is slow in short mode")
	}
	moves, err := AnalyzeGame(scholarsMatePGN, 2, 4, styleProfiles["Normal"])
	if err != nil {
		t.Fatalf("AnalyzeGame: %v", err)
	}
	if len(moves) != 4 {
		t.Fatalf("ply cap 4 should truncate to 4 moves, got %d", len(moves))
	}
}

func TestWinningProbabilityIsLogistic(t *testing.T) {
	if p := winningProbability(0); p < 0.49 || p > 0.51 {
		t.Fatalf("probability at 0cp should be 0.5, got %f", p)
	}
	if p := winningProbability(500); p < 0.9 {
		t.Fatalf("probability at +500cp should be near 1, got %f", p)
	}
	if p := winningProbability(-500); p > 0.1 {
		t.Fatalf("probability at -500cp should be near 0, got %f", p)
	}
}

func TestClassificationThresholds(t *testing.T) {
	cases := []struct {
		loss   int
		isBest bool
		want   MoveClassification
	}{
		{0, true, Best},
		{250, false, Blunder},
		{120, false, Questionable},
		{5, false, Good},
		{50, false, Neutral},
	}
	for _, tc := range cases {
		if got := classifyByLoss(tc.loss, tc.isBest); got != tc.want {
			t.Fatalf("classifyByLoss(%d, %v) = %v, want %v", tc.loss, tc.isBest, got, tc.want)
		}
	}
}

func TestMoveClassificationStrings(t *testing.T) {
	if Blunder.String() != "Blunder" || classificationSymbols[Blunder] != "??" {
		t.Fatalf("blunder rendering broken")
	}
	if !strings.Contains(Questionable.String(), "Questionable") {
		t.Fatalf("classification strings broken")
	}
}
