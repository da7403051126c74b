// Package board holds the pure board model: square mapping and deterministic
// reconstruction of a position from a prefix of a move log. It performs no
// legality checking of any kind; the server is the sole arbiter of rules and
// this side only mirrors what the log says happened.
package board

// Position is an 8x8 grid of piece codes ("wP", "bK", ...), "" for empty.
// Row 0 is rank 8. It is derived data: always recomputed from the log, never
// mutated in place across renders.
type Position [8][8]string

// Move is the minimal input the reconstruction engine needs.
type Move struct {
	From  Square
	To    Square
	Piece string
}

// Starting returns the standard initial layout.
func Starting() Position {
	var p Position
	back := [8]string{"R", "N", "B", "Q", "K", "B", "N", "R"}
	for col := 0; col < 8; col++ {
		p[0][col] = "b" + back[col]
		p[1][col] = "bP"
		p[6][col] = "wP"
		p[7][col] = "w" + back[col]
	}
	return p
}

// At returns the piece on a square, "" when empty or off-board.
func (p Position) At(sq Square) string {
	row, col, ok := sq.Coords()
	if !ok {
		return ""
	}
	return p[row][col]
}

// Reconstruct replays the first count moves over the initial layout and
// returns the resulting position. count is clamped to [0, len(moves)].
// The origin square is cleared and the destination takes whatever occupied
// the origin; an already-empty origin falls back to the move's recorded
// piece, which tolerates snapshots that begin mid-game. Pure and total:
// the same inputs always produce the same position.
func Reconstruct(initial Position, moves []Move, count int) Position {
	if count < 0 {
		count = 0
	}
	if count > len(moves) {
		count = len(moves)
	}
	p := initial
	for _, m := range moves[:count] {
		fr, fc, ok := m.From.Coords()
		if !ok {
			continue
		}
		tr, tc, ok := m.To.Coords()
		if !ok {
			continue
		}
		moving := p[fr][fc]
		if moving == "" {
			moving = m.Piece
		}
		p[fr][fc] = ""
		p[tr][tc] = moving
	}
	return p
}
