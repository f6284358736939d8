package main

import (
	"math/bits"
	"strings"
)

// Bitboard is a set of squares, bit i set iff square i is occupied.
// Square numbering: a1 = 0, h1 = 7, a8 = 56, h8 = 63.
type Bitboard uint64

const (
	A1, B1, C1, D1, E1, F1, G1, H1 = 0, 1, 2, 3, 4, 5, 6, 7
	A8                             = 56
	B8                             = 57
	C8                             = 58
	D8                             = 59
	E8                             = 60
	F8                             = 61
	G8                             = 62
	H8                             = 63
)

const (
	FileABB Bitboard = 0x0101010101010101
	FileBBB Bitboard = FileABB << 1
	FileGBB Bitboard = FileABB << 6
	FileHBB Bitboard = FileABB << 7

	Rank1BB Bitboard = 0x00000000000000FF
	Rank2BB Bitboard = Rank1BB << 8
	Rank3BB Bitboard = Rank1BB << 16
	Rank4BB Bitboard = Rank1BB << 24
	Rank5BB Bitboard = Rank1BB << 32
	Rank6BB Bitboard = Rank1BB << 40
	Rank7BB Bitboard = Rank1BB << 48
	Rank8BB Bitboard = Rank1BB << 56
)

func squareBB(sq int) Bitboard {
	return Bitboard(1) << uint(sq)
}

func fileOf(sq int) int { return sq & 7 }
func rankOf(sq int) int { return sq >> 3 }

func squareAt(file, rank int) int { return rank*8 + file }

func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the index of the least significant set bit. Undefined for 0.
func (b Bitboard) LSB() int {
	return bits.TrailingZeros64(uint64(b))
}

// popLSB clears and returns the lowest set bit's square.
func popLSB(b *Bitboard) int {
	sq := bits.TrailingZeros64(uint64(*b))
	*b &= *b - 1
	return sq
}

func (b Bitboard) Has(sq int) bool {
	return b&squareBB(sq) != 0
}

func (b Bitboard) north() Bitboard { return b << 8 }
func (b Bitboard) south() Bitboard { return b >> 8 }
func (b Bitboard) east() Bitboard  { return (b &^ FileHBB) << 1 }
func (b Bitboard) west() Bitboard  { return (b &^ FileABB) >> 1 }

func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			if b.Has(squareAt(file, rank)) {
				sb.WriteByte('X')
			} else {
				sb.WriteByte('.')
			}
			if file < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func squareName(sq int) string {
	if sq < 0 || sq > 63 {
		return "-"
	}
	return string([]byte{byte('a' + fileOf(sq)), byte('1' + rankOf(sq))})
}

func parseSquare(s string) int {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return -1
	}
	return squareAt(int(s[0]-'a'), int(s[1]-'1'))
}
