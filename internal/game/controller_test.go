package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emna-bh/EchecGame/internal/identity"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/pkg/wire"
)

type fakeSender struct {
	mu     sync.Mutex
	frames []any
	err    error
}

func (f *fakeSender) Send(_ context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
	return f.err
}

func (f *fakeSender) sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.frames))
	copy(out, f.frames)
	return out
}

func newTestController(t *testing.T, opts Options) (*Controller, *fakeSender) {
	t.Helper()
	msgs, err := msgcat.New("")
	require.NoError(t, err)
	sender := &fakeSender{}
	if opts.GameID == 0 {
		opts.GameID = 9
	}
	if !opts.Me.Known() {
		opts.Me = identity.Identity{UserID: 7, Username: "ann"}
	}
	opts.Sender = sender
	opts.Messages = msgs
	c := New(opts)
	t.Cleanup(c.Close)
	return c, sender
}

func moveEvent(n int, from, to, piece string, by int64) wire.Move {
	return wire.Move{GameID: 9, MoveNumber: n, From: from, To: to, Piece: piece, ByUserID: by}
}

func TestTurnAlternatesWithLogParity(t *testing.T) {
	c, _ := newTestController(t, Options{})
	c.SetColor(ColorWhite)

	require.True(t, c.IsMyTurn(), "white on empty log")
	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	require.False(t, c.IsMyTurn(), "white after one move")
	c.HandleEvent(moveEvent(2, "e7", "e5", "bP", 42))
	require.True(t, c.IsMyTurn(), "white after two moves")
	c.HandleEvent(moveEvent(3, "g1", "f3", "wN", 7))
	require.False(t, c.IsMyTurn())
}

func TestTurnGateClosedWithoutColorOrAfterGameOver(t *testing.T) {
	c, _ := newTestController(t, Options{})
	require.False(t, c.IsMyTurn(), "no color assigned")

	c.SetColor(ColorWhite)
	require.True(t, c.IsMyTurn())
	c.HandleEvent(wire.GameOver{GameID: 9, WinnerUserID: 7})
	require.False(t, c.IsMyTurn(), "terminal game")
}

func TestMoveAdvancesCursorOnlyWhenLive(t *testing.T) {
	c, _ := newTestController(t, Options{ReplayInterval: time.Hour})
	c.SetColor(ColorWhite)

	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	c.HandleEvent(moveEvent(2, "e7", "e5", "bP", 42))
	v := c.View()
	require.Equal(t, ModeLive, v.Mode)
	require.Equal(t, 2, v.Cursor)

	c.ScrubTo(1)
	require.Equal(t, ModePausedReplay, c.View().Mode)

	// A move arriving mid-review grows the log but never moves the cursor.
	c.HandleEvent(moveEvent(3, "g1", "f3", "wN", 7))
	v = c.View()
	require.Equal(t, 1, v.Cursor)
	require.Equal(t, 3, v.LogLen)
	require.Equal(t, ModePausedReplay, v.Mode)
}

func TestDuplicateMoveLeavesLogUntouched(t *testing.T) {
	c, _ := newTestController(t, Options{})
	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	c.HandleEvent(moveEvent(1, "d2", "d4", "wP", 7))
	require.Equal(t, 1, c.View().LogLen)
}

func TestEventsForOtherGamesAreIgnored(t *testing.T) {
	c, _ := newTestController(t, Options{})
	c.HandleEvent(wire.Move{GameID: 555, MoveNumber: 1, From: "e2", To: "e4", Piece: "wP"})
	require.Equal(t, 0, c.View().LogLen)
	c.HandleEvent(wire.GameOver{GameID: 555, WinnerUserID: 7})
	require.False(t, c.View().Over)
}

func TestTwoClickMoveSubmission(t *testing.T) {
	c, sender := newTestController(t, Options{})
	c.SetColor(ColorWhite)

	c.Select("e2")
	require.Equal(t, "e2", string(c.View().Selected))

	c.Select("e4")
	require.Empty(t, string(c.View().Selected), "selection cleared after second click")
	frames := sender.sent()
	require.Len(t, frames, 1)
	require.Equal(t, wire.NewMoveSubmit(9, "e2", "e4", "wP"), frames[0])
}

func TestSecondClickOnOriginCancels(t *testing.T) {
	c, sender := newTestController(t, Options{})
	c.SetColor(ColorWhite)

	c.Select("e2")
	c.Select("e2")
	require.Empty(t, string(c.View().Selected))
	require.Empty(t, sender.sent())
}

func TestSelectionRejectsOpponentPieceAndWrongTurn(t *testing.T) {
	c, sender := newTestController(t, Options{})
	c.SetColor(ColorWhite)

	c.Select("e7") // black pawn
	require.Empty(t, string(c.View().Selected))

	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	c.Select("d2") // white piece, but it is black's turn now
	require.Empty(t, string(c.View().Selected))
	require.Empty(t, sender.sent())
}

func TestSelectionSuppressedOutsideLiveView(t *testing.T) {
	c, sender := newTestController(t, Options{ReplayInterval: time.Hour})
	c.SetColor(ColorWhite)
	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	c.HandleEvent(moveEvent(2, "e7", "e5", "bP", 42))
	c.ScrubTo(0)

	c.Select("e2")
	c.Select("e4")
	require.Empty(t, sender.sent(), "no outbound submission while reviewing")
}

func TestSendFailureIsInvisible(t *testing.T) {
	c, sender := newTestController(t, Options{})
	sender.err = context.DeadlineExceeded
	c.SetColor(ColorWhite)

	c.Select("e2")
	c.Select("e4")
	// The drop has no observable effect: no status, no board change.
	v := c.View()
	require.Empty(t, v.Status)
	require.Equal(t, 0, v.LogLen)
}

func TestGameOverVictoryAndDefeat(t *testing.T) {
	msgs, err := msgcat.New("")
	require.NoError(t, err)

	c, _ := newTestController(t, Options{ExitDelay: time.Hour})
	c.SetColor(ColorWhite)
	c.HandleEvent(wire.GameOver{GameID: 9, WinnerUserID: 7, EndReason: "resign"})
	v := c.View()
	require.True(t, v.Over)
	require.Equal(t, msgs.Text("game.victory", nil), v.Summary)
	require.Contains(t, v.Toast, msgs.Text("game.reason_resign", nil))

	c2, _ := newTestController(t, Options{ExitDelay: time.Hour})
	c2.SetColor(ColorBlack)
	c2.HandleEvent(wire.GameOver{GameID: 9, WinnerUserID: 42, EndReason: "checkmate"})
	v2 := c2.View()
	require.True(t, v2.Over)
	require.Equal(t, msgs.Text("game.defeat", nil), v2.Summary)
	require.Contains(t, v2.Toast, msgs.Text("game.reason_other", nil))
}

func TestGameOverSchedulesExit(t *testing.T) {
	exited := make(chan struct{})
	c, _ := newTestController(t, Options{
		ExitDelay: 10 * time.Millisecond,
		OnExit:    func() { close(exited) },
	})
	c.HandleEvent(wire.GameOver{GameID: 9, WinnerUserID: 7})
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("exit callback never fired")
	}
}

func TestCloseCancelsExitTimer(t *testing.T) {
	fired := make(chan struct{}, 1)
	c, _ := newTestController(t, Options{
		ExitDelay: 30 * time.Millisecond,
		OnExit:    func() { fired <- struct{}{} },
	})
	c.HandleEvent(wire.GameOver{GameID: 9, WinnerUserID: 7})
	c.Close()
	select {
	case <-fired:
		t.Fatal("exit callback fired after Close")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestResign(t *testing.T) {
	msgs, err := msgcat.New("")
	require.NoError(t, err)

	c, sender := newTestController(t, Options{ExitDelay: time.Hour})
	c.SetColor(ColorWhite)
	c.Resign()
	v := c.View()
	require.True(t, v.Over)
	require.Equal(t, msgs.Text("game.resigned", nil), v.Summary)
	frames := sender.sent()
	require.Len(t, frames, 1)
	require.Equal(t, wire.NewResign(9), frames[0])

	// A second resign does nothing.
	c.Resign()
	require.Len(t, sender.sent(), 1)
}

func TestServerErrorBecomesStatus(t *testing.T) {
	c, _ := newTestController(t, Options{})
	c.HandleEvent(wire.ServerError{Message: "Not your turn"})
	require.Equal(t, "Not your turn", c.View().Status)

	// The next applied move clears it.
	c.HandleEvent(moveEvent(1, "e2", "e4", "wP", 7))
	require.Empty(t, c.View().Status)
}
