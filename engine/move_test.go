package main

import "testing"

func TestMovePacking(t *testing.T) {
	m := newCapture(parseSquare("e4"), parseSquare("d5"), Pawn, Knight)
	if m.From() != parseSquare("e4") || m.To() != parseSquare("d5") {
		t.Fatalf("from/to mangled: %v", m)
	}
	if m.Piece() != Pawn || m.Captured() != Knight {
		t.Fatalf("piece fields mangled: piece=%d captured=%d", m.Piece(), m.Captured())
	}
	if !m.IsCapture() || m.IsPromotion() || m.IsEnPassant() || m.IsCastle() {
		t.Fatalf("flag bits wrong: %v", m)
	}
	if m.IsQuiet() {
		t.Fatalf("a capture is not quiet")
	}
}

func TestPromotionPacking(t *testing.T) {
	quietPromo := newPromotion(parseSquare("a7"), parseSquare("a8"), pieceNone, Queen)
	if quietPromo.IsCapture() || !quietPromo.IsPromotion() || quietPromo.Promotion() != Queen {
		t.Fatalf("quiet promotion mangled: %v", quietPromo)
	}
	capPromo := newPromotion(parseSquare("a7"), parseSquare("b8"), Rook, Knight)
	if !capPromo.IsCapture() || capPromo.Captured() != Rook || capPromo.Promotion() != Knight {
		t.Fatalf("capture promotion mangled: %v", capPromo)
	}
}

func TestMoveStringFormats(t *testing.T) {
	cases := []struct {
		m    Move
		want string
	}{
		{newMove(parseSquare("e2"), parseSquare("e4"), Pawn), "e2e4"},
		{newCastle(E1, G1), "e1g1"},
		{newCastle(E8, C8), "e8c8"},
		{newPromotion(parseSquare("e7"), parseSquare("e8"), pieceNone, Queen), "e7e8q"},
		{newPromotion(parseSquare("b2"), parseSquare("a1"), Rook, Knight), "b2a1n"},
		{NullMove, "0000"},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.want {
			t.Fatalf("move string: got %q want %q", got, tc.want)
		}
	}
}

func TestCompactRoundTripDistinguishesPromotions(t *testing.T) {
	queen := newPromotion(parseSquare("e7"), parseSquare("e8"), pieceNone, Queen)
	knight := newPromotion(parseSquare("e7"), parseSquare("e8"), pieceNone, Knight)
	push := newMove(parseSquare("e7"), parseSquare("e8"), Rook)

	if queen.compact() == knight.compact() {
		t.Fatalf("promotion piece must survive compaction")
	}
	if queen.compact() == push.compact() {
		t.Fatalf("promotion and non-promotion to the same square must differ")
	}
	if !queen.matchesCompact(queen.compact()) || queen.matchesCompact(knight.compact()) {
		t.Fatalf("matchesCompact is inconsistent")
	}
	if queen.matchesCompact(0) {
		t.Fatalf("compact code 0 means no move and must match nothing")
	}
}

func TestFindMoveResolvesCastlingAndPromotions(t *testing.T) {
	p := &Position{}
	if err := p.SetFEN(kiwipeteFEN); err != nil {
		t.Fatal(err)
	}
	if m := p.findMove("e1g1"); m == NullMove || !m.IsCastle() {
		t.Fatalf("e1g1 should resolve to the castling move, got %v", m)
	}
	if m := p.findMove("e1e9"); m != NullMove {
		t.Fatalf("garbage square text must not resolve")
	}
	if m := p.findMove("a2a5"); m != NullMove {
		t.Fatalf("illegal move text must not resolve")
	}

	promo := &Position{}
	if err := promo.SetFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	if m := promo.findMove("a7a8n"); m == NullMove || m.Promotion() != Knight {
		t.Fatalf("underpromotion text should resolve to the knight promotion")
	}
	if m := promo.findMove("a7a8"); m != NullMove {
		t.Fatalf("promotion without a piece letter is ambiguous and must not resolve")
	}
}
