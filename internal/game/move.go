package game

import (
	"sort"
	"time"

	"github.com/emna-bh/EchecGame/internal/board"
	"github.com/emna-bh/EchecGame/pkg/wire"
)

// Move is one confirmed move. Number is server-assigned, 1-based and unique
// within a game; a Move is never mutated after creation.
type Move struct {
	board.Move
	Number   int
	ByUserID int64
	PlayedAt time.Time
}

// Log is the ordered, de-duplicated history of confirmed moves for one game.
// It is the single source of truth for both the live and the replay view.
// Entries are only ever added or merged; removal happens solely through Reset.
type Log struct {
	moves []Move
}

// Merge inserts m unless a move with the same number is already present.
// Out-of-order arrival is tolerated: the log is re-sorted by number after
// insertion. Reports whether the log changed.
func (l *Log) Merge(m Move) bool {
	for _, existing := range l.moves {
		if existing.Number == m.Number {
			return false
		}
	}
	l.moves = append(l.moves, m)
	sort.Slice(l.moves, func(i, j int) bool { return l.moves[i].Number < l.moves[j].Number })
	return true
}

// BulkLoad replaces the whole log with the snapshot's moves. Valid only at
// session (re)initialization, before live merges happened.
func (l *Log) BulkLoad(moves []Move) {
	l.moves = l.moves[:0]
	for _, m := range moves {
		l.Merge(m)
	}
}

// Reset clears the log for a new game id.
func (l *Log) Reset() {
	l.moves = nil
}

func (l *Log) Len() int {
	return len(l.moves)
}

// Moves returns a copy of the log in order.
func (l *Log) Moves() []Move {
	out := make([]Move, len(l.moves))
	copy(out, l.moves)
	return out
}

// Steps projects the log into the reconstruction engine's input.
func (l *Log) Steps() []board.Move {
	out := make([]board.Move, len(l.moves))
	for i, m := range l.moves {
		out[i] = m.Move
	}
	return out
}

// moveFromEvent converts a live wire event.
func moveFromEvent(ev wire.Move) Move {
	return Move{
		Move:     board.Move{From: board.Square(ev.From), To: board.Square(ev.To), Piece: ev.Piece},
		Number:   ev.MoveNumber,
		ByUserID: ev.ByUserID,
		PlayedAt: time.Now(),
	}
}

// movesFromRecords converts snapshot/history records. A bad timestamp is not
// worth rejecting the move over; ordering comes from the number alone.
func movesFromRecords(records []wire.MoveRecord) []Move {
	out := make([]Move, 0, len(records))
	for _, r := range records {
		played, _ := time.Parse(time.RFC3339, r.CreatedAt)
		out = append(out, Move{
			Move:     board.Move{From: board.Square(r.FromSquare), To: board.Square(r.ToSquare), Piece: r.Piece},
			Number:   r.MoveNumber,
			ByUserID: r.ByUserID,
			PlayedAt: played,
		})
	}
	return out
}
