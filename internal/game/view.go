package game

import "github.com/emna-bh/EchecGame/internal/board"

// View is the read-only projection a rendering layer consumes. It is
// recomputed from scratch on every read: the board is always rebuilt from the
// initial layout plus the cursor's prefix of the log, never patched in place.
type View struct {
	GameID   int64
	Board    board.Position
	Cursor   int
	LogLen   int
	Mode     Mode
	Color    Color
	MyTurn   bool
	Selected board.Square // "" when nothing is selected
	Status   string
	Over     bool
	Summary  string
	Toast    string
}

// Live reports whether the view accepts player input.
func (v View) Live() bool {
	return v.Mode == ModeLive && !v.Over
}

// View snapshots the controller's current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		GameID:  c.gameID,
		Board:   c.boardAtLocked(c.cursor),
		Cursor:  c.cursor,
		LogLen:  c.log.Len(),
		Mode:    c.mode,
		Color:   c.myColor,
		MyTurn:  c.isMyTurnLocked(),
		Status:  c.status,
		Over:    c.over,
		Summary: c.summary,
		Toast:   c.toast,
	}
	if c.selected != nil {
		v.Selected = *c.selected
	}
	return v
}
