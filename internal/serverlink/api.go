// Package serverlink talks to the game server: the persistent websocket
// channel carrying live events, and the HTTP endpoints used to bootstrap a
// session (active-game snapshot, move history, online roster).
package serverlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/emna-bh/EchecGame/pkg/wire"
)

// HeaderProvider supplies per-request headers (token, client id).
type HeaderProvider func() map[string]string

// API is the request/response side of the server contract.
type API struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*API)

func WithTimeout(d time.Duration) Option {
	return func(a *API) { a.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(a *API) { a.retryMax = max }
}

func WithAPIHeaderProvider(h HeaderProvider) Option {
	return func(a *API) { a.headers = h }
}

func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ActiveGame fetches the caller's authoritative snapshot. A server answer of
// "no active game" (empty body or 204) yields nil, nil.
func (a *API) ActiveGame(ctx context.Context) (*wire.GameState, error) {
	var st wire.GameState
	found, err := a.getJSON(ctx, "/api/games/active", &st)
	if err != nil {
		return nil, err
	}
	if !found || st.GameID == 0 {
		return nil, nil
	}
	return &st, nil
}

// Moves fetches the full ordered history of one game.
func (a *API) Moves(ctx context.Context, gameID int64) ([]wire.MoveRecord, error) {
	var moves []wire.MoveRecord
	if _, err := a.getJSON(ctx, fmt.Sprintf("/api/games/%d/moves", gameID), &moves); err != nil {
		return nil, err
	}
	return moves, nil
}

// OnlineUsers fetches the initial roster; live updates arrive on the channel.
func (a *API) OnlineUsers(ctx context.Context) ([]wire.User, error) {
	var users wire.UserList
	if _, err := a.getJSON(ctx, "/api/users/online", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// getJSON performs a GET with bounded retries. found is false for 204 or an
// empty body, which the snapshot endpoint uses for "nothing active".
func (a *API) getJSON(ctx context.Context, path string, out any) (found bool, err error) {
	url := a.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	if a.headers != nil {
		for k, v := range a.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	attempts := a.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := a.computeDeadline(ctx)
		err := a.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return false, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return false, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status == fasthttp.StatusNoContent {
			return false, nil
		}
		if status < 200 || status >= 300 {
			err := fmt.Errorf("server api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return false, err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return false, lastErr
			}
			continue
		}

		body := resp.Body()
		if len(body) == 0 || string(body) == "null" {
			return false, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return true, nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return false, lastErr
}

func (a *API) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(a.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
