package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emna-bh/EchecGame/internal/identity"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/pkg/wire"
)

type fakeSender struct {
	mu     sync.Mutex
	frames []any
}

func (f *fakeSender) Send(_ context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
	return nil
}

func (f *fakeSender) sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.frames))
	copy(out, f.frames)
	return out
}

type fakeRosterAPI struct {
	users    []wire.User
	usersErr error
	state    *wire.GameState
	stateErr error
}

func (f *fakeRosterAPI) OnlineUsers(context.Context) ([]wire.User, error) {
	return f.users, f.usersErr
}

func (f *fakeRosterAPI) ActiveGame(context.Context) (*wire.GameState, error) {
	return f.state, f.stateErr
}

func newTestLobby(t *testing.T, opts Options) (*Lobby, *fakeSender) {
	t.Helper()
	msgs, err := msgcat.New("")
	require.NoError(t, err)
	sender := &fakeSender{}
	if !opts.Me.Known() {
		opts.Me = identity.Identity{UserID: 7, Username: "ann"}
	}
	opts.Sender = sender
	opts.Messages = msgs
	return New(opts), sender
}

func TestRosterIsReplacedWholesale(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.OnlineUsers{Users: []wire.User{{ID: 7, Username: "ann"}, {ID: 42, Username: "bob"}}})
	require.Len(t, l.View().Roster, 2)

	l.HandleEvent(wire.OnlineUsers{Users: []wire.User{{ID: 7, Username: "ann"}}})
	v := l.View()
	require.Len(t, v.Roster, 1)
	require.Equal(t, int64(7), v.Roster[0].ID)
}

func TestInvitesDedupBySenderNewestFirst(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.Invite{FromUserID: 42, FromUsername: "bob"})
	l.HandleEvent(wire.Invite{FromUserID: 99, FromUsername: "eve"})
	l.HandleEvent(wire.Invite{FromUserID: 42, FromUsername: "robert"})

	v := l.View()
	require.Len(t, v.Invites, 2)
	require.Equal(t, Invite{FromUserID: 42, FromUsername: "robert"}, v.Invites[0],
		"re-invite moves to the front with the newer name")
	require.Equal(t, int64(99), v.Invites[1].FromUserID)
}

func TestNotificationsAreBounded(t *testing.T) {
	l, _ := newTestLobby(t, Options{NotificationLimit: 3})
	for i := 1; i <= 5; i++ {
		l.HandleEvent(wire.InviteSent{ToUserID: int64(i), ToUsername: fmt.Sprintf("user%d", i)})
	}
	v := l.View()
	require.Len(t, v.Notifications, 3)
	require.Contains(t, v.Notifications[0], "user5", "newest note first")
	require.Contains(t, v.Notifications[2], "user3")
}

func TestInviteSentMarksPending(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.InviteSent{ToUserID: 42, ToUsername: "bob"})
	v := l.View()
	require.Equal(t, []int64{42}, v.Pending)
	require.Len(t, v.Notifications, 1)
	require.Contains(t, v.Notifications[0], "bob")
}

func TestInviteSentWithoutNameFallsBackToID(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.InviteSent{ToUserID: 42})
	require.Contains(t, l.View().Notifications[0], "#42")
}

func TestDeclineResponseClearsPendingAndNotes(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.InviteSent{ToUserID: 42, ToUsername: "bob"})
	l.HandleEvent(wire.InviteResponse{FromUserID: 42, Accepted: false})

	v := l.View()
	require.Empty(t, v.Pending)
	require.Len(t, v.Notifications, 2)
}

func TestAcceptResponseDefersToGameStart(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.InviteSent{ToUserID: 42, ToUsername: "bob"})
	l.HandleEvent(wire.InviteResponse{FromUserID: 42, Accepted: true})

	v := l.View()
	require.Equal(t, []int64{42}, v.Pending, "pending clears on game_start, not on accept")
	require.Len(t, v.Notifications, 1)
}

func TestServerErrorClearsPending(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	l.HandleEvent(wire.InviteSent{ToUserID: 42, ToUsername: "bob"})
	l.HandleEvent(wire.ServerError{Message: "player unavailable"})

	v := l.View()
	require.Empty(t, v.Pending)
	require.Contains(t, v.Notifications[0], "player unavailable")
}

func TestGameStartResetsAndHandsOff(t *testing.T) {
	var started []int64
	l, _ := newTestLobby(t, Options{OnGameStart: func(id int64) { started = append(started, id) }})
	l.HandleEvent(wire.Invite{FromUserID: 42, FromUsername: "bob"})
	l.HandleEvent(wire.InviteSent{ToUserID: 99, ToUsername: "eve"})

	l.HandleEvent(wire.GameStart{GameID: 5, Color: "white"})
	v := l.View()
	require.Empty(t, v.Invites)
	require.Empty(t, v.Pending)
	require.Equal(t, []int64{5}, started)
}

func TestGameStartWithoutIDIsIgnored(t *testing.T) {
	var started []int64
	l, _ := newTestLobby(t, Options{OnGameStart: func(id int64) { started = append(started, id) }})
	l.HandleEvent(wire.GameStart{GameID: 0})
	require.Empty(t, started)
}

func TestSendInviteEmitsFrameAndMarksPending(t *testing.T) {
	l, sender := newTestLobby(t, Options{})
	l.SendInvite(42)

	require.Equal(t, []any{wire.NewInvite(42)}, sender.sent())
	require.Equal(t, []int64{42}, l.View().Pending)
}

func TestSendInviteRejectsSelfAndZero(t *testing.T) {
	l, sender := newTestLobby(t, Options{})
	l.SendInvite(7) // own id
	l.SendInvite(0)
	require.Empty(t, sender.sent())
	require.Empty(t, l.View().Pending)
}

func TestAcceptAndDeclineEmitFramesAndDropInvite(t *testing.T) {
	l, sender := newTestLobby(t, Options{})
	l.HandleEvent(wire.Invite{FromUserID: 42, FromUsername: "bob"})
	l.HandleEvent(wire.Invite{FromUserID: 99, FromUsername: "eve"})

	l.Accept(42)
	l.Decline(99)

	require.Equal(t, []any{
		wire.NewInviteResponse(42, true),
		wire.NewInviteResponse(99, false),
	}, sender.sent())
	require.Empty(t, l.View().Invites)
}

func TestBootstrapLoadsRosterAndResumes(t *testing.T) {
	var started []int64
	l, _ := newTestLobby(t, Options{OnGameStart: func(id int64) { started = append(started, id) }})
	api := &fakeRosterAPI{
		users: []wire.User{{ID: 42, Username: "bob"}},
		state: &wire.GameState{GameID: 5, Status: wire.StatusActive},
	}

	l.Bootstrap(context.Background(), api)
	require.Len(t, l.View().Roster, 1)
	require.Equal(t, []int64{5}, started)
}

func TestBootstrapSurvivesAPIFailures(t *testing.T) {
	var started []int64
	l, _ := newTestLobby(t, Options{OnGameStart: func(id int64) { started = append(started, id) }})
	api := &fakeRosterAPI{usersErr: errors.New("down"), stateErr: errors.New("down")}

	l.Bootstrap(context.Background(), api)
	require.Empty(t, l.View().Roster)
	require.Empty(t, started)
}

func TestChangesPublishOnMutation(t *testing.T) {
	l, _ := newTestLobby(t, Options{})
	var fired int
	l.Changes().Subscribe(func() { fired++ })

	l.HandleEvent(wire.Invite{FromUserID: 42, FromUsername: "bob"})
	require.Equal(t, 1, fired)
}
