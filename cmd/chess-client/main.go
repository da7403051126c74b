package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emna-bh/EchecGame/internal/board"
	appcfg "github.com/emna-bh/EchecGame/internal/config"
	"github.com/emna-bh/EchecGame/internal/game"
	"github.com/emna-bh/EchecGame/internal/identity"
	"github.com/emna-bh/EchecGame/internal/lobby"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/internal/notify"
	"github.com/emna-bh/EchecGame/internal/obslog"
	"github.com/emna-bh/EchecGame/internal/serverlink"
)

// Headless reference host: wires the sync core to a terminal. Rendering here
// is debug output only; any real UI subscribes to the same projections.
func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	msgs, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	me := identity.Identity{UserID: cfg.UserID, Username: cfg.Username, Token: cfg.Token}
	clientID := uuid.NewString()

	headers := func() map[string]string {
		h := map[string]string{"X-Client-Id": clientID}
		if me.Token != "" {
			h["Authorization"] = "Bearer " + me.Token
		}
		return h
	}

	api := serverlink.NewAPI(cfg.ServerBaseURL, serverlink.WithAPIHeaderProvider(headers))

	wsURL := cfg.ServerWSURL
	if me.Token != "" {
		wsURL += "?token=" + url.QueryEscape(me.Token)
	}
	ch := serverlink.NewChannel(wsURL)
	ch.SetHeaderProvider(headers)
	ch.OnStateChange(func(state serverlink.State) {
		obslog.L().Info("channel_state", zap.String("state", string(state)))
	})

	host := &host{
		cfg:  cfg,
		me:   me,
		msgs: msgs,
		api:  api,
		ch:   ch,
	}

	host.lobby = lobby.New(lobby.Options{
		Me:                me,
		Sender:            ch,
		Messages:          msgs,
		NotificationLimit: cfg.NotificationLimit,
		OnGameStart:       host.enterGame,
	})
	ch.OnEvent(host.lobby.HandleEvent)
	host.lobby.Changes().Subscribe(host.renderLobby)

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ch.Connect(cctx); err != nil {
		cancel()
		log.Fatalf("channel connect error: %v", err)
	}
	cancel()

	go host.lobby.Bootstrap(context.Background(), api)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	host.teardown()
	_ = ch.Close(context.Background())
}

type host struct {
	cfg  *appcfg.AppConfig
	me   identity.Identity
	msgs *msgcat.Catalog
	api  *serverlink.API
	ch   *serverlink.Channel

	lobby *lobby.Lobby

	mu        sync.Mutex
	ctrl      *game.Controller
	ctrlCbID  int
	renderID  int
	renderHub *notify.Hub
}

// enterGame switches the host into the game view. A second game_start for the
// same id is a no-op; a different id replaces the running controller.
func (h *host) enterGame(gameID int64) {
	if gameID <= 0 {
		return
	}
	h.mu.Lock()
	if h.ctrl != nil {
		if h.ctrl.View().GameID == gameID {
			h.mu.Unlock()
			return
		}
		h.closeGameLocked()
	}

	ctrl := game.New(game.Options{
		GameID:         gameID,
		Me:             h.me,
		Sender:         h.ch,
		Messages:       h.msgs,
		ReplayInterval: h.cfg.ReplayInterval(),
		ExitDelay:      h.cfg.ExitDelay(),
		OnExit:         h.leaveGame,
	})
	h.ctrl = ctrl
	h.ctrlCbID = h.ch.OnEvent(ctrl.HandleEvent)
	h.renderID = ctrl.Changes().Subscribe(func() { h.renderGame(ctrl) })
	h.renderHub = ctrl.Changes()
	h.mu.Unlock()

	go func() {
		if err := ctrl.Start(context.Background(), h.api); err != nil {
			obslog.L().Warn("game_start_failed", zap.Int64("game_id", gameID), zap.Error(err))
		}
	}()
}

// leaveGame returns to the lobby after a finished game's exit delay.
func (h *host) leaveGame() {
	h.mu.Lock()
	h.closeGameLocked()
	h.mu.Unlock()
	go h.lobby.Bootstrap(context.Background(), h.api)
}

func (h *host) closeGameLocked() {
	if h.ctrl == nil {
		return
	}
	h.ch.RemoveEventCallback(h.ctrlCbID)
	if h.renderHub != nil {
		h.renderHub.Unsubscribe(h.renderID)
		h.renderHub = nil
	}
	h.ctrl.Close()
	h.ctrl = nil
}

func (h *host) teardown() {
	h.mu.Lock()
	h.closeGameLocked()
	h.mu.Unlock()
}

func (h *host) renderGame(ctrl *game.Controller) {
	v := ctrl.View()
	var b strings.Builder
	fmt.Fprintf(&b, "game %d | %s (coup %d/%d)", v.GameID, v.Mode, v.Cursor, v.LogLen)
	if v.MyTurn {
		b.WriteString(" | a vous")
	}
	b.WriteString("\n")
	b.WriteString(renderBoard(v.Board))
	if v.Status != "" {
		b.WriteString(v.Status + "\n")
	}
	if v.Over {
		b.WriteString(v.Summary + "\n")
		if v.Toast != "" {
			b.WriteString(v.Toast + "\n")
		}
	}
	fmt.Print(b.String())
}

func (h *host) renderLobby() {
	v := h.lobby.View()
	var b strings.Builder
	fmt.Fprintf(&b, "lobby | %d en ligne", len(v.Roster))
	if len(v.Invites) > 0 {
		fmt.Fprintf(&b, ", %d invitation(s)", len(v.Invites))
	}
	b.WriteString("\n")
	for _, n := range v.Notifications {
		b.WriteString("  " + n + "\n")
	}
	fmt.Print(b.String())
}

func renderBoard(p board.Position) string {
	var b strings.Builder
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&b, "%d ", 8-row)
		for col := 0; col < 8; col++ {
			cell := p[row][col]
			if cell == "" {
				cell = ".."
			}
			b.WriteString(cell + " ")
		}
		b.WriteString("\n")
	}
	b.WriteString("   a  b  c  d  e  f  g  h\n")
	return b.String()
}
