package serverlink

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/emna-bh/EchecGame/internal/obslog"
	"github.com/emna-bh/EchecGame/pkg/wire"
	"go.uber.org/zap"
)

// State of the persistent channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosed       State = "closed"
)

// ErrNotConnected is returned by Send while the channel is not open. Callers
// follow fire-and-forget semantics and may ignore it; it exists so tests can
// observe the drop.
var ErrNotConnected = errors.New("channel not connected")

type EventCallback func(ev wire.Event)

type StateCallback func(state State)

type eventCbEntry struct {
	id int
	cb EventCallback
}

type stateCbEntry struct {
	id int
	cb StateCallback
}

// Channel owns the single long-lived websocket to the game server: dial,
// inbound decode and fan-out, outbound frames, ping keepalive. It never
// reconnects on its own; after a loss the owner calls Connect again.
type Channel struct {
	wsURL string

	conn   *websocket.Conn
	state  State
	stateM sync.RWMutex

	evCbs    []eventCbEntry
	stateCbs []stateCbEntry
	nextCbID int
	cbM      sync.RWMutex

	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	// optional: inject auth headers at handshake
	headerProvider HeaderProvider
}

func NewChannel(wsURL string) *Channel {
	return &Channel{
		wsURL:        wsURL,
		state:        StateDisconnected,
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// SetHeaderProvider injects handshake headers (token, client id).
func (c *Channel) SetHeaderProvider(h HeaderProvider) {
	c.headerProvider = h
}

// Connect dials the server. Calling it while already connecting or connected
// is a no-op, so a second view entering cannot open a duplicate socket.
func (c *Channel) Connect(ctx context.Context) error {
	c.stateM.Lock()
	if c.state == StateConnected || c.state == StateConnecting || c.state == StateClosed {
		c.stateM.Unlock()
		return nil
	}
	c.stateM.Unlock()

	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.conn = conn
	c.setState(StateConnected)

	c.wg.Add(2)
	go c.listen()
	go c.pingLoop()
	return nil
}

func (c *Channel) listen() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if c.conn == nil {
			return
		}
		_, data, err := c.conn.Read(c.rootCtx)
		if err != nil {
			if c.isStopping() {
				return
			}
			obslog.L().Warn("channel_read_failed", zap.Error(err))
			c.setState(StateDisconnected)
			_ = c.closeConn(websocket.StatusGoingAway, "read failure")
			return
		}

		ev, err := wire.Decode(data)
		if err != nil {
			// Malformed frames die here; controllers only see typed events.
			obslog.L().Debug("channel_frame_dropped", zap.Error(err))
			continue
		}

		c.cbM.RLock()
		callbacks := make([]eventCbEntry, len(c.evCbs))
		copy(callbacks, c.evCbs)
		c.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.cb != nil {
				entry.cb(ev)
			}
		}
	}
}

func (c *Channel) pingLoop() {
	defer c.wg.Done()
	conn := c.conn
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			// The loop belongs to one connection; a later Connect starts its own.
			if c.conn != conn || c.State() != StateConnected {
				return
			}
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= 2 {
					if c.isStopping() {
						return
					}
					obslog.L().Warn("channel_ping_failed", zap.Error(err))
					c.setState(StateDisconnected)
					_ = c.closeConn(websocket.StatusGoingAway, "ping failure")
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Send writes one outbound frame. While the channel is not open the frame is
// dropped and ErrNotConnected returned; there is no queueing and no retry.
func (c *Channel) Send(ctx context.Context, v any) error {
	if c.conn == nil || c.State() != StateConnected {
		obslog.L().Debug("channel_send_dropped")
		return ErrNotConnected
	}
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return wsjson.Write(dctx, c.conn, v)
}

func (c *Channel) OnEvent(cb EventCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextCbID++
	c.evCbs = append(c.evCbs, eventCbEntry{id: c.nextCbID, cb: cb})
	return c.nextCbID
}

func (c *Channel) RemoveEventCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, e := range c.evCbs {
		if e.id == id {
			c.evCbs = append(c.evCbs[:i], c.evCbs[i+1:]...)
			return
		}
	}
}

func (c *Channel) OnStateChange(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextCbID++
	c.stateCbs = append(c.stateCbs, stateCbEntry{id: c.nextCbID, cb: cb})
	return c.nextCbID
}

func (c *Channel) RemoveStateCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, e := range c.stateCbs {
		if e.id == id {
			c.stateCbs = append(c.stateCbs[:i], c.stateCbs[i+1:]...)
			return
		}
	}
}

// State returns the current channel state.
func (c *Channel) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Channel) setState(state State) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := make([]stateCbEntry, len(c.stateCbs))
	copy(callbacks, c.stateCbs)
	c.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.cb != nil {
			entry.cb(state)
		}
	}
}

// Close tears the channel down for good; a closed channel cannot reconnect.
func (c *Channel) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	_ = c.closeConn(websocket.StatusNormalClosure, "close")
	c.setState(StateClosed)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if c.rootCancel != nil {
			c.rootCancel()
		}
		return nil
	}
}

func (c *Channel) closeConn(code websocket.StatusCode, reason string) error {
	if c.conn == nil {
		return nil
	}
	defer func() { c.conn = nil }()
	return c.conn.Close(code, reason)
}

func (c *Channel) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Channel) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headerProvider == nil {
		return hdr
	}
	for k, v := range c.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
