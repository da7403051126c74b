package game

import (
	"context"
	"errors"

	"github.com/emna-bh/EchecGame/internal/obslog"
	"github.com/emna-bh/EchecGame/pkg/wire"
	"go.uber.org/zap"
)

// ErrNoGame aborts entry into the game view when no valid game id exists;
// the host redirects out instead of presenting a broken session.
var ErrNoGame = errors.New("no game id")

// SnapshotAPI is the request/response collaborator used to bootstrap a
// session. The live channel keeps delivering events concurrently; Merge's
// de-duplication makes the two sources commute.
type SnapshotAPI interface {
	ActiveGame(ctx context.Context) (*wire.GameState, error)
	Moves(ctx context.Context, gameID int64) ([]wire.MoveRecord, error)
}

// Start reconciles local state with the server on fresh load or reconnect.
// When the snapshot identifies the requested game it is trusted for color
// assignment and terminal status and its moves are bulk-loaded; otherwise the
// move history for the requested id is fetched directly. Moves that arrived
// live before this resolves are already in the log and later duplicates from
// the bulk load are rejected, so arrival order does not matter.
func (c *Controller) Start(ctx context.Context, api SnapshotAPI) error {
	if c.gameID <= 0 {
		return ErrNoGame
	}

	st, err := api.ActiveGame(ctx)
	if err != nil {
		obslog.L().Warn("snapshot_fetch_failed", zap.Int64("game_id", c.gameID), zap.Error(err))
	}
	if err == nil && st != nil && st.GameID == c.gameID {
		c.adoptSnapshot(st)
		return nil
	}

	moves, err := api.Moves(ctx, c.gameID)
	if err != nil {
		c.mu.Lock()
		c.status = c.msgs.Text("game.load_failed", nil)
		c.mu.Unlock()
		c.changes.Publish()
		return err
	}
	c.mu.Lock()
	for _, m := range movesFromRecords(moves) {
		c.log.Merge(m)
	}
	if c.mode == ModeLive {
		c.cursor = c.log.Len()
	}
	c.mu.Unlock()
	obslog.L().Info("session_history_loaded",
		zap.Int64("game_id", c.gameID), zap.Int("moves", len(moves)))
	c.changes.Publish()
	return nil
}

func (c *Controller) adoptSnapshot(st *wire.GameState) {
	c.mu.Lock()
	if c.me.Known() {
		if c.me.UserID == st.WhiteUserID {
			c.myColor = ColorWhite
		} else {
			c.myColor = ColorBlack
		}
	}
	for _, m := range movesFromRecords(st.Moves) {
		c.log.Merge(m)
	}
	if c.mode == ModeLive {
		c.cursor = c.log.Len()
	}
	if st.Status == wire.StatusFinished {
		c.over = true
		if c.me.Known() && st.WinnerUserID == c.me.UserID {
			c.summary = c.msgs.Text("game.victory", nil)
		} else {
			c.summary = c.msgs.Text("game.defeat", nil)
		}
		c.scheduleExitLocked()
	}
	color := c.myColor
	c.mu.Unlock()
	obslog.L().Info("session_snapshot_adopted",
		zap.Int64("game_id", st.GameID),
		zap.String("color", string(color)),
		zap.String("status", st.Status),
		zap.Int("moves", len(st.Moves)))
	c.changes.Publish()
}

// SetColor assigns the local side directly, used when the game_start event
// already told us the color and no snapshot exists yet.
func (c *Controller) SetColor(color Color) {
	c.mu.Lock()
	c.myColor = color
	c.mu.Unlock()
	c.changes.Publish()
}

// Reset clears the log and terminal flags for a new game id.
func (c *Controller) Reset(gameID int64) {
	c.mu.Lock()
	c.stopTimerLocked()
	if c.exitTimer != nil {
		c.exitTimer.Stop()
		c.exitTimer = nil
	}
	c.gameID = gameID
	c.log.Reset()
	c.cursor = 0
	c.mode = ModeLive
	c.myColor = ""
	c.over = false
	c.summary = ""
	c.toast = ""
	c.status = ""
	c.selected = nil
	c.mu.Unlock()
	c.changes.Publish()
}
