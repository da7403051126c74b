package board

import "fmt"

// Square is algebraic notation: a lowercase file letter a-h followed by a
// rank digit 1-8, e.g. "e4".
type Square string

// Coords maps a square to board indices. Row 0 is rank 8 (black's back rank),
// column 0 is file a, matching the orientation the server renders for white.
func (s Square) Coords() (row, col int, ok bool) {
	if len(s) != 2 {
		return 0, 0, false
	}
	file := s[0]
	rank := s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return 0, 0, false
	}
	return 8 - int(rank-'0'), int(file - 'a'), true
}

// FromCoords is the inverse of Coords.
func FromCoords(row, col int) (Square, error) {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return "", fmt.Errorf("coords out of range: row=%d col=%d", row, col)
	}
	return Square([]byte{byte('a' + col), byte('0' + (8 - row))}), nil
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	_, _, ok := s.Coords()
	return ok
}
