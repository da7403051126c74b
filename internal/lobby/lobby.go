// Package lobby runs the pre-game surface: the online roster, the invite
// exchange and its notifications, and the hand-off into a started game.
package lobby

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/emna-bh/EchecGame/internal/identity"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/internal/notify"
	"github.com/emna-bh/EchecGame/internal/obslog"
	"github.com/emna-bh/EchecGame/pkg/wire"
	"go.uber.org/zap"
)

// Invite pairs a remote user with a display name.
type Invite struct {
	FromUserID   int64
	FromUsername string
}

// Sender pushes outbound frames to the server.
type Sender interface {
	Send(ctx context.Context, v any) error
}

// RosterAPI bootstraps the lobby: initial roster plus the resume probe.
type RosterAPI interface {
	OnlineUsers(ctx context.Context) ([]wire.User, error)
	ActiveGame(ctx context.Context) (*wire.GameState, error)
}

// Options configures a Lobby.
type Options struct {
	Me                identity.Identity
	Sender            Sender
	Messages          *msgcat.Catalog
	NotificationLimit int
	// OnGameStart is the hand-off into the game view; called with a non-zero
	// game id only.
	OnGameStart func(gameID int64)
}

// Lobby owns the roster, the incoming/outgoing invite sets and the bounded
// notification list. All mutation happens under its lock.
type Lobby struct {
	me          identity.Identity
	sender      Sender
	msgs        *msgcat.Catalog
	noteLimit   int
	onGameStart func(gameID int64)

	mu      sync.Mutex
	roster  []wire.User
	invites []Invite
	pending map[int64]struct{}
	notes   []string

	changes *notify.Hub
}

func New(opts Options) *Lobby {
	limit := opts.NotificationLimit
	if limit <= 0 {
		limit = 3
	}
	return &Lobby{
		me:          opts.Me,
		sender:      opts.Sender,
		msgs:        opts.Messages,
		noteLimit:   limit,
		onGameStart: opts.OnGameStart,
		pending:     make(map[int64]struct{}),
		changes:     notify.NewHub(),
	}
}

// Changes exposes the lobby's change notifier.
func (l *Lobby) Changes() *notify.Hub { return l.changes }

// Bootstrap fetches the initial roster and probes for an already-running
// game. A running game triggers the enter-game callback (session resume after
// a page load). Both failures are non-fatal; the live stream will catch up.
func (l *Lobby) Bootstrap(ctx context.Context, api RosterAPI) {
	users, err := api.OnlineUsers(ctx)
	if err != nil {
		obslog.L().Warn("roster_fetch_failed", zap.Error(err))
		users = nil
	}
	l.mu.Lock()
	l.roster = users
	l.mu.Unlock()
	l.changes.Publish()

	st, err := api.ActiveGame(ctx)
	if err != nil {
		obslog.L().Warn("resume_probe_failed", zap.Error(err))
		return
	}
	if st != nil && st.GameID > 0 && l.onGameStart != nil {
		obslog.L().Info("session_resume", zap.Int64("game_id", st.GameID))
		l.onGameStart(st.GameID)
	}
}

// HandleEvent processes one inbound frame; in-game event classes are ignored.
func (l *Lobby) HandleEvent(ev wire.Event) {
	switch e := ev.(type) {
	case wire.OnlineUsers:
		// Wholesale replacement, never an incremental merge.
		l.mu.Lock()
		l.roster = e.Users
		l.mu.Unlock()
	case wire.Invite:
		l.mu.Lock()
		l.insertInviteLocked(Invite{FromUserID: e.FromUserID, FromUsername: e.FromUsername})
		l.mu.Unlock()
	case wire.InviteResponse:
		if e.Accepted {
			// Acceptance is confirmed by the game_start that follows.
			return
		}
		l.mu.Lock()
		l.pushNoteLocked(l.msgs.Text("lobby.invite_declined", map[string]int64{"UserID": e.FromUserID}))
		delete(l.pending, e.FromUserID)
		l.mu.Unlock()
	case wire.InviteSent:
		label := e.ToUsername
		if label == "" {
			label = "#" + strconv.FormatInt(e.ToUserID, 10)
		}
		l.mu.Lock()
		l.pushNoteLocked(l.msgs.Text("lobby.invite_sent", map[string]string{"Name": label}))
		l.pending[e.ToUserID] = struct{}{}
		l.mu.Unlock()
	case wire.ServerError:
		l.mu.Lock()
		l.pushNoteLocked(l.msgs.Text("lobby.error", map[string]string{"Message": e.Message}))
		l.pending = make(map[int64]struct{})
		l.mu.Unlock()
	case wire.GameStart:
		l.mu.Lock()
		l.pending = make(map[int64]struct{})
		l.invites = nil
		l.mu.Unlock()
		l.changes.Publish()
		// A missing or zero game id is a no-op; never enter a broken view.
		if e.GameID > 0 && l.onGameStart != nil {
			obslog.L().Info("game_start", zap.Int64("game_id", e.GameID))
			l.onGameStart(e.GameID)
		}
		return
	default:
		return
	}
	l.changes.Publish()
}

// insertInviteLocked keeps invites most-recent-first and de-duplicated by
// sender: a newer invite replaces an older one from the same user.
func (l *Lobby) insertInviteLocked(inv Invite) {
	kept := make([]Invite, 0, len(l.invites)+1)
	kept = append(kept, inv)
	for _, existing := range l.invites {
		if existing.FromUserID != inv.FromUserID {
			kept = append(kept, existing)
		}
	}
	l.invites = kept
}

func (l *Lobby) pushNoteLocked(note string) {
	l.notes = append([]string{note}, l.notes...)
	if len(l.notes) > l.noteLimit {
		l.notes = l.notes[:l.noteLimit]
	}
}

// SendInvite challenges another player. The pending mark is optimistic; the
// server's invite_sent ack re-adds it with the display name resolved.
func (l *Lobby) SendInvite(toUserID int64) {
	if toUserID <= 0 || toUserID == l.me.UserID {
		return
	}
	l.mu.Lock()
	l.pending[toUserID] = struct{}{}
	l.mu.Unlock()
	_ = l.sender.Send(context.Background(), wire.NewInvite(toUserID))
	l.changes.Publish()
}

// Accept answers an incoming invite. Removal is optimistic: the subsequent
// game_start event is the real confirmation.
func (l *Lobby) Accept(fromUserID int64) {
	l.respond(fromUserID, true)
}

// Decline refuses an incoming invite.
func (l *Lobby) Decline(fromUserID int64) {
	l.respond(fromUserID, false)
}

func (l *Lobby) respond(fromUserID int64, accepted bool) {
	l.mu.Lock()
	kept := l.invites[:0]
	for _, inv := range l.invites {
		if inv.FromUserID != fromUserID {
			kept = append(kept, inv)
		}
	}
	l.invites = kept
	l.mu.Unlock()
	_ = l.sender.Send(context.Background(), wire.NewInviteResponse(fromUserID, accepted))
	l.changes.Publish()
}

// View is the lobby's read-only projection.
type View struct {
	Roster        []wire.User
	Invites       []Invite
	Pending       []int64
	Notifications []string
}

func (l *Lobby) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := View{
		Roster:        append([]wire.User(nil), l.roster...),
		Invites:       append([]Invite(nil), l.invites...),
		Notifications: append([]string(nil), l.notes...),
	}
	for id := range l.pending {
		v.Pending = append(v.Pending, id)
	}
	sort.Slice(v.Pending, func(i, j int) bool { return v.Pending[i] < v.Pending[j] })
	return v
}
