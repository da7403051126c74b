// Package game is the in-game synchronization core: it mirrors the server's
// move log, renders live and replay views over it, gates move submission by
// turn and ownership, and reconciles local state with the authoritative
// snapshot on session start.
package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/emna-bh/EchecGame/internal/board"
	"github.com/emna-bh/EchecGame/internal/identity"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/internal/notify"
	"github.com/emna-bh/EchecGame/internal/obslog"
	"github.com/emna-bh/EchecGame/pkg/wire"
	"go.uber.org/zap"
)

// Color is the side assigned to the local player, "" when unknown.
type Color string

const (
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

// Mode of the view controller.
type Mode string

const (
	// ModeLive renders the tip of the log and accepts player input.
	ModeLive Mode = "live"
	// ModePausedReplay renders a past cursor with no auto-advance.
	ModePausedReplay Mode = "paused_replay"
	// ModePlayingReplay auto-advances the cursor on a repeating timer.
	ModePlayingReplay Mode = "playing_replay"
)

// Sender pushes outbound frames to the server. Sends are fire-and-forget;
// a drop while disconnected is deliberately ignored by this controller.
type Sender interface {
	Send(ctx context.Context, v any) error
}

// Options configures a Controller. Zero durations fall back to the defaults
// the product shipped with (700ms playback step, 3s exit delay).
type Options struct {
	GameID         int64
	Me             identity.Identity
	Sender         Sender
	Messages       *msgcat.Catalog
	ReplayInterval time.Duration
	ExitDelay      time.Duration
	// OnExit is invoked (once) after a finished game's exit delay elapses.
	OnExit func()
}

// Controller owns all mutable in-game state: the move log, the view cursor,
// the session flags and the selection. Mutation happens only under its lock;
// observers read immutable View projections.
type Controller struct {
	gameID int64
	me     identity.Identity
	sender Sender
	msgs   *msgcat.Catalog

	interval  time.Duration
	exitDelay time.Duration
	onExit    func()

	mu        sync.Mutex
	log       Log
	cursor    int
	mode      Mode
	myColor   Color
	over      bool
	summary   string
	toast     string
	status    string
	selected  *board.Square
	timerStop chan struct{}
	exitTimer *time.Timer

	changes *notify.Hub
}

func New(opts Options) *Controller {
	interval := opts.ReplayInterval
	if interval <= 0 {
		interval = 700 * time.Millisecond
	}
	exitDelay := opts.ExitDelay
	if exitDelay <= 0 {
		exitDelay = 3 * time.Second
	}
	return &Controller{
		gameID:    opts.GameID,
		me:        opts.Me,
		sender:    opts.Sender,
		msgs:      opts.Messages,
		interval:  interval,
		exitDelay: exitDelay,
		onExit:    opts.OnExit,
		mode:      ModeLive,
		changes:   notify.NewHub(),
	}
}

// Changes exposes the controller's change notifier.
func (c *Controller) Changes() *notify.Hub { return c.changes }

// HandleEvent processes one inbound frame. Events for other games and event
// classes owned by the lobby are ignored.
func (c *Controller) HandleEvent(ev wire.Event) {
	switch e := ev.(type) {
	case wire.Move:
		c.handleMove(e)
	case wire.GameOver:
		c.handleGameOver(e)
	case wire.ServerError:
		c.mu.Lock()
		c.status = e.Message
		if strings.TrimSpace(c.status) == "" {
			c.status = c.msgs.Text("game.server_error", nil)
		}
		c.mu.Unlock()
		c.changes.Publish()
	}
}

func (c *Controller) handleMove(ev wire.Move) {
	if ev.GameID != c.gameID {
		return
	}
	c.mu.Lock()
	applied := c.log.Merge(moveFromEvent(ev))
	if !applied {
		c.mu.Unlock()
		obslog.L().Debug("move_duplicate_discarded",
			zap.Int64("game_id", ev.GameID), zap.Int("move_number", ev.MoveNumber))
		return
	}
	// In a replay the cursor stays put; no surprise jumps during review.
	if c.mode == ModeLive {
		c.cursor = c.log.Len()
	}
	c.status = ""
	c.mu.Unlock()
	obslog.L().Debug("move_merged",
		zap.Int64("game_id", ev.GameID), zap.Int("move_number", ev.MoveNumber))
	c.changes.Publish()
}

func (c *Controller) handleGameOver(ev wire.GameOver) {
	if ev.GameID != c.gameID {
		return
	}
	won := c.me.Known() && ev.WinnerUserID == c.me.UserID
	reasonKey := "game.reason_other"
	if ev.EndReason == "resign" {
		reasonKey = "game.reason_resign"
	}
	c.mu.Lock()
	c.over = true
	reason := c.msgs.Text(reasonKey, nil)
	if won {
		c.summary = c.msgs.Text("game.victory", nil)
		c.toast = c.msgs.Text("game.toast_win", map[string]string{"Reason": reason})
	} else {
		c.summary = c.msgs.Text("game.defeat", nil)
		c.toast = c.msgs.Text("game.toast_lose", map[string]string{"Reason": reason})
	}
	c.scheduleExitLocked()
	c.mu.Unlock()
	obslog.L().Info("game_over",
		zap.Int64("game_id", ev.GameID),
		zap.Int64("winner_user_id", ev.WinnerUserID),
		zap.Bool("won", won),
		zap.String("end_reason", ev.EndReason))
	c.changes.Publish()
}

// IsMyTurn derives the turn from log length parity: white moves on even
// lengths. False when no color is assigned or the game is over.
func (c *Controller) IsMyTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isMyTurnLocked()
}

func (c *Controller) isMyTurnLocked() bool {
	if c.myColor == "" || c.over {
		return false
	}
	whiteTurn := c.log.Len()%2 == 0
	return whiteTurn == (c.myColor == ColorWhite)
}

func (c *Controller) ownPieceLocked(piece string) bool {
	switch c.myColor {
	case ColorWhite:
		return strings.HasPrefix(piece, "w")
	case ColorBlack:
		return strings.HasPrefix(piece, "b")
	default:
		return false
	}
}

// Select implements the two-click move protocol. The first valid click on an
// own piece during the player's turn records the origin; the second click
// submits origin->destination (clicking the origin again cancels). The
// selection is cleared unconditionally after the second click. Outside the
// live view, or after game over, clicks have no effect at all.
func (c *Controller) Select(sq board.Square) {
	c.mu.Lock()
	if c.mode != ModeLive || c.over || !sq.Valid() {
		c.mu.Unlock()
		return
	}
	pos := c.boardAtLocked(c.cursor)

	if c.selected == nil {
		piece := pos.At(sq)
		if piece != "" && c.ownPieceLocked(piece) && c.isMyTurnLocked() {
			s := sq
			c.selected = &s
			c.mu.Unlock()
			c.changes.Publish()
			return
		}
		c.mu.Unlock()
		return
	}

	from := *c.selected
	c.selected = nil
	submit := false
	var frame wire.MoveSubmit
	if c.isMyTurnLocked() && from != sq {
		if moving := pos.At(from); moving != "" {
			frame = wire.NewMoveSubmit(c.gameID, string(from), string(sq), moving)
			submit = true
		}
	}
	c.mu.Unlock()

	if submit {
		// The board only changes when the server echoes the move back;
		// a drop while disconnected stays invisible by design of the wire.
		_ = c.sender.Send(context.Background(), frame)
	}
	c.changes.Publish()
}

// Resign forfeits the active game.
func (c *Controller) Resign() {
	c.mu.Lock()
	if c.over {
		c.mu.Unlock()
		return
	}
	c.over = true
	c.summary = c.msgs.Text("game.resigned", nil)
	c.toast = c.msgs.Text("game.you_resigned", nil)
	c.scheduleExitLocked()
	frame := wire.NewResign(c.gameID)
	c.mu.Unlock()

	_ = c.sender.Send(context.Background(), frame)
	obslog.L().Info("resigned", zap.Int64("game_id", c.gameID))
	c.changes.Publish()
}

func (c *Controller) scheduleExitLocked() {
	if c.onExit == nil || c.exitTimer != nil {
		return
	}
	c.exitTimer = time.AfterFunc(c.exitDelay, c.onExit)
}

// Close cancels the playback timer and any pending exit timer. It must be
// called on view teardown so no callback fires against a disposed controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	if c.exitTimer != nil {
		c.exitTimer.Stop()
		c.exitTimer = nil
	}
}

func (c *Controller) boardAtLocked(cursor int) board.Position {
	return board.Reconstruct(board.Starting(), c.log.Steps(), cursor)
}
