package main

// Move generation: pseudo-legal by piece type, then a make/test/unmake
// legality filter. Perft against the published node counts is the
// correctness oracle for everything in this file.

const maxMoves = 256

func (p *Position) generatePawnMoves(moves []Move, capturesOnly bool) []Move {
	us := p.side
	them := opposite(us)
	pawns := p.pieces[us][Pawn]
	enemies := p.occ[them]
	empty := ^p.occAll

	var push, doublePush Bitboard
	var promoRank Bitboard
	var forward int
	if us == White {
		push = pawns.north() & empty
		doublePush = (push & Rank3BB).north() & empty
		promoRank = Rank8BB
		forward = 8
	} else {
		push = pawns.south() & empty
		doublePush = (push & Rank6BB).south() & empty
		promoRank = Rank1BB
		forward = -8
	}

	if !capturesOnly {
		quiet := push &^ promoRank
		for quiet != 0 {
			to := popLSB(&quiet)
			moves = append(moves, newMove(to-forward, to, Pawn))
		}
		for doublePush != 0 {
			to := popLSB(&doublePush)
			moves = append(moves, newMove(to-2*forward, to, Pawn))
		}
	}

	// Push promotions count as noisy moves for quiescence.
	promoPush := push & promoRank
	for promoPush != 0 {
		to := popLSB(&promoPush)
		from := to - forward
		for _, promo := range [4]int{Queen, Rook, Bishop, Knight} {
			moves = append(moves, newPromotion(from, to, pieceNone, promo))
		}
	}

	remaining := pawns
	for remaining != 0 {
		from := popLSB(&remaining)
		targets := pawnCaptures[us][from] & enemies
		for targets != 0 {
			to := popLSB(&targets)
			victim, _, _ := p.pieceAt(to)
			if promoRank.Has(to) {
				for _, promo := range [4]int{Queen, Rook, Bishop, Knight} {
					moves = append(moves, newPromotion(from, to, victim, promo))
				}
			} else {
				moves = append(moves, newCapture(from, to, Pawn, victim))
			}
		}
		if p.epSquare >= 0 && pawnCaptures[us][from].Has(p.epSquare) {
			moves = append(moves, newEnPassant(from, p.epSquare))
		}
	}
	return moves
}

func (p *Position) generatePieceMoves(moves []Move, kind int, capturesOnly bool) []Move {
	us := p.side
	them := opposite(us)
	pieces := p.pieces[us][kind]
	for pieces != 0 {
		from := popLSB(&pieces)
		targets := attacksBy(kind, from, p.occAll) &^ p.occ[us]
		if capturesOnly {
			targets &= p.occ[them]
		}
		for targets != 0 {
			to := popLSB(&targets)
			if p.occ[them].Has(to) {
				victim, _, _ := p.pieceAt(to)
				moves = append(moves, newCapture(from, to, kind, victim))
			} else {
				moves = append(moves, newMove(from, to, kind))
			}
		}
	}
	return moves
}

func (p *Position) generateCastling(moves []Move) []Move {
	us := p.side
	them := opposite(us)
	if p.inCheck() {
		return moves
	}
	// The king and rook checks guard against hand-written FENs that claim a
	// right without the pieces on their home squares.
	if us == White {
		if !p.pieces[White][King].Has(E1) {
			return moves
		}
		if p.castling&castleWhiteKing != 0 && p.pieces[White][Rook].Has(H1) &&
			p.occAll&(squareBB(F1)|squareBB(G1)) == 0 &&
			!p.isAttacked(F1, them, p.occAll) && !p.isAttacked(G1, them, p.occAll) {
			moves = append(moves, newCastle(E1, G1))
		}
		if p.castling&castleWhiteQueen != 0 && p.pieces[White][Rook].Has(A1) &&
			p.occAll&(squareBB(B1)|squareBB(C1)|squareBB(D1)) == 0 &&
			!p.isAttacked(D1, them, p.occAll) && !p.isAttacked(C1, them, p.occAll) {
			moves = append(moves, newCastle(E1, C1))
		}
	} else {
		if !p.pieces[Black][King].Has(E8) {
			return moves
		}
		if p.castling&castleBlackKing != 0 && p.pieces[Black][Rook].Has(H8) &&
			p.occAll&(squareBB(F8)|squareBB(G8)) == 0 &&
			!p.isAttacked(F8, them, p.occAll) && !p.isAttacked(G8, them, p.occAll) {
			moves = append(moves, newCastle(E8, G8))
		}
		if p.castling&castleBlackQueen != 0 && p.pieces[Black][Rook].Has(A8) &&
			p.occAll&(squareBB(B8)|squareBB(C8)|squareBB(D8)) == 0 &&
			!p.isAttacked(D8, them, p.occAll) && !p.isAttacked(C8, them, p.occAll) {
			moves = append(moves, newCastle(E8, C8))
		}
	}
	return moves
}

func (p *Position) generatePseudoLegal(capturesOnly bool) []Move {
	moves := make([]Move, 0, maxMoves)
	moves = p.generatePawnMoves(moves, capturesOnly)
	for kind := Knight; kind <= King; kind++ {
		moves = p.generatePieceMoves(moves, kind, capturesOnly)
	}
	if !capturesOnly {
		moves = p.generateCastling(moves)
	}
	return moves
}

// isLegalAfter reports whether our king is safe once m has been applied.
// Called with the move already made, side to move flipped.
func (p *Position) isLegalAfter() bool {
	mover := opposite(p.side)
	return !p.isAttacked(p.kingSquare(mover), p.side, p.occAll)
}

func (p *Position) filterLegal(moves []Move) []Move {
	legal := moves[:0]
	for _, m := range moves {
		undo := p.Apply(m)
		ok := p.isLegalAfter()
		p.Undo(m, undo)
		if ok {
			legal = append(legal, m)
		}
	}
	return legal
}

// GenerateLegalMoves emits exactly the moves that leave the mover's king
// unattacked. Castling legality (king path not attacked) is handled at
// generation time.
func (p *Position) GenerateLegalMoves() []Move {
	return p.filterLegal(p.generatePseudoLegal(false))
}

// GenerateCaptures emits legal captures (including en passant) and
// promotions, for quiescence.
func (p *Position) GenerateCaptures() []Move {
	return p.filterLegal(p.generatePseudoLegal(true))
}

func (p *Position) hasLegalMoves() bool {
	for _, m := range p.generatePseudoLegal(false) {
		undo := p.Apply(m)
		ok := p.isLegalAfter()
		p.Undo(m, undo)
		if ok {
			return true
		}
	}
	return false
}
