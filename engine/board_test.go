package main

import "testing"

const kiwipeteFEN = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func positionSnapshot(p *Position) Position {
	snap := *p
	snap.history = nil
	return snap
}

func samePosition(a, b Position) bool {
	return a.pieces == b.pieces && a.occ == b.occ && a.occAll == b.occAll &&
		a.side == b.side && a.castling == b.castling && a.epSquare == b.epSquare &&
		a.halfmove == b.halfmove && a.fullmove == b.fullmove && a.key == b.key
}

func TestStartposFENRoundTrip(t *testing.T) {
	p := NewPosition()
	if got := p.FEN(); got != startFEN {
		t.Fatalf("startpos FEN round trip: got %q want %q", got, startFEN)
	}
	if len(p.GenerateLegalMoves()) != 20 {
		t.Fatalf("startpos should have 20 legal moves, got %d", len(p.GenerateLegalMoves()))
	}
}

func TestMakeUnmakeRestoresEverything(t *testing.T) {
	fens := []string{
		startFEN,
		kiwipeteFEN,
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	}
	for _, fen := range fens {
		p := &Position{}
		if err := p.SetFEN(fen); err != nil {
			t.Fatalf("SetFEN(%q): %v", fen, err)
		}
		before := positionSnapshot(p)
		histLen := len(p.history)
		for _, m := range p.GenerateLegalMoves() {
			undo := p.Apply(m)
			p.Undo(m, undo)
			after := positionSnapshot(p)
			if !samePosition(before, after) {
				t.Fatalf("fen %q: make/unmake of %v did not restore the position", fen, m)
			}
			if len(p.history) != histLen {
				t.Fatalf("fen %q: history length changed after %v", fen, m)
			}
		}
	}
}

func TestZobristIncrementalMatchesRecompute(t *testing.T) {
	p := NewPosition()
	// Walk a fixed opening line and verify the incremental key at each step.
	line := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "g8f6", "e1g1", "f6e4", "d2d4", "e4d6"}
	for _, text := range line {
		m := p.findMove(text)
		if m == NullMove {
			t.Fatalf("line move %q not legal", text)
		}
		p.Apply(m)
		if p.key != p.computeKey() {
			t.Fatalf("incremental key drifted after %s", text)
		}
	}
}

func TestNullMoveRoundTrip(t *testing.T) {
	p := &Position{}
	if err := p.SetFEN(kiwipeteFEN); err != nil {
		t.Fatal(err)
	}
	before := positionSnapshot(p)
	undo := p.ApplyNull()
	if p.side == before.side {
		t.Fatalf("null move must flip side to move")
	}
	if p.key == before.key {
		t.Fatalf("null move must change the key")
	}
	p.UndoNull(undo)
	if !samePosition(before, positionSnapshot(p)) {
		t.Fatalf("null make/unmake did not restore the position")
	}
}

func TestNarrowEnPassantSetting(t *testing.T) {
	// Double push with no enemy pawn adjacent: no ep square, no ep key term.
	p := NewPosition()
	p.Apply(p.findMove("e2e4"))
	if p.epSquare != -1 {
		t.Fatalf("expected no ep square after e2e4 from startpos, got %s", squareName(p.epSquare))
	}

	// Same push with a black pawn on d4: ep square must be set.
	p2 := &Position{}
	if err := p2.SetFEN("rnbqkbnr/ppp1pppp/8/8/3p4/8/PPPPPPPP/RNBQKBNR w KQkq - 0 3"); err != nil {
		t.Fatal(err)
	}
	p2.Apply(p2.findMove("e2e4"))
	if p2.epSquare != parseSquare("e3") {
		t.Fatalf("expected ep square e3, got %s", squareName(p2.epSquare))
	}
	if p2.key != p2.computeKey() {
		t.Fatalf("key must include the ep-file term")
	}
}

func TestPromotionUnmakeRestoresPawn(t *testing.T) {
	p := &Position{}
	if err := p.SetFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	before := positionSnapshot(p)
	m := p.findMove("a7a8q")
	if m == NullMove {
		t.Fatalf("promotion a7a8q should be legal")
	}
	undo := p.Apply(m)
	if !p.pieces[White][Queen].Has(A8) {
		t.Fatalf("promotion must place a queen on a8")
	}
	if p.pieces[White][Pawn] != 0 {
		t.Fatalf("promotion must remove the pawn")
	}
	p.Undo(m, undo)
	if !samePosition(before, positionSnapshot(p)) {
		t.Fatalf("promotion unmake did not restore the pawn")
	}
}

func TestCastlingRightsUpdates(t *testing.T) {
	p := &Position{}
	if err := p.SetFEN(kiwipeteFEN); err != nil {
		t.Fatal(err)
	}

	m := p.findMove("e1g1")
	if m == NullMove {
		t.Fatalf("white short castle should be legal in kiwipete")
	}
	undo := p.Apply(m)
	if p.castling&(castleWhiteKing|castleWhiteQueen) != 0 {
		t.Fatalf("castling must clear both white rights")
	}
	if !p.pieces[White][Rook].Has(F1) {
		t.Fatalf("short castle must move the rook to f1")
	}
	p.Undo(m, undo)

	m = p.findMove("a1b1")
	undo = p.Apply(m)
	if p.castling&castleWhiteQueen != 0 {
		t.Fatalf("rook leaving a1 must clear the white queenside right")
	}
	if p.castling&castleWhiteKing == 0 {
		t.Fatalf("rook leaving a1 must keep the white kingside right")
	}
	p.Undo(m, undo)
}

func TestFENRejectsMalformedInput(t *testing.T) {
	bad := []string{
		"",
		"only/seven/ranks/here/4k3/8/8 w - - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNZ w KQkq - 0 1",
		"9/8/8/8/8/8/8/8 w - - 0 1",
		"8/8/8/8/8/8/8/8 w - - 0 1", // no kings
	}
	for _, fen := range bad {
		p := NewPosition()
		before := positionSnapshot(p)
		if err := p.SetFEN(fen); err == nil {
			t.Fatalf("SetFEN(%q) should fail", fen)
		}
		if !samePosition(before, positionSnapshot(p)) {
			t.Fatalf("failed SetFEN(%q) must leave the position unchanged", fen)
		}
	}
}

func TestInsufficientMaterial(t *testing.T) {
	cases := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4kb2/8/8/8/8/8/8/4KB2 w - - 0 1", false}, // b on f8 dark, B on f1 light
		{"2b1k3/8/8/8/8/8/8/4KB2 w - - 0 1", true}, // both bishops light-squared
		{"4k3/8/8/8/8/8/8/4K2R w K - 0 1", false},
		{"4k3/7p/8/8/8/8/8/4K3 w - - 0 1", false},
	}
	for _, tc := range cases {
		p := &Position{}
		if err := p.SetFEN(tc.fen); err != nil {
			t.Fatalf("SetFEN(%q): %v", tc.fen, err)
		}
		if got := p.isInsufficientMaterial(); got != tc.want {
			t.Fatalf("isInsufficientMaterial(%q) = %v, want %v", tc.fen, got, tc.want)
		}
	}
}

func TestRepetitionDetection(t *testing.T) {
	p := NewPosition()
	for _, text := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		p.Apply(p.findMove(text))
	}
	if !p.isRepetition() {
		t.Fatalf("knight shuffle back to startpos must count as a repetition")
	}
}
