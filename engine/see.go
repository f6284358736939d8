package main

// Static exchange evaluation: play out all captures on the target square,
// least valuable attacker first, and minimax the gain sequence. X-ray
// attackers become visible as occupancy is cleared, and pawn attackers are
// found by the retro rule built into attackersTo.

func (p *Position) leastValuableAttacker(attackers Bitboard, side int) (sq, kind int) {
	for kind = Pawn; kind <= King; kind++ {
		subset := attackers & p.pieces[side][kind]
		if subset != 0 {
			return subset.LSB(), kind
		}
	}
	return -1, -1
}

// see returns the net centipawn gain for the side making move m, assuming
// both sides keep capturing on the destination whenever it wins material.
func (p *Position) see(m Move) int {
	target := m.To()
	from := m.From()

	firstVictim := m.Captured()
	if m.IsEnPassant() {
		firstVictim = Pawn
	}

	var gain [32]int
	d := 0
	if firstVictim != pieceNone {
		gain[0] = seeValue[firstVictim]
	}

	occ := p.occAll &^ squareBB(from)
	if m.IsEnPassant() {
		capSq := target - 8
		if p.side == Black {
			capSq = target + 8
		}
		occ &^= squareBB(capSq)
	}

	side := opposite(p.side)
	attackerValue := seeValue[m.Piece()]

	for {
		attackers := p.attackersTo(target, occ)
		sq, kind := p.leastValuableAttacker(attackers, side)
		if sq < 0 {
			break
		}
		d++
		gain[d] = attackerValue - gain[d-1]
		// Once even the best continuation loses material, neither side
		// recaptures further.
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}
		attackerValue = seeValue[kind]
		occ &^= squareBB(sq)
		side = opposite(side)
		if d == len(gain)-1 {
			break
		}
	}

	for ; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}
