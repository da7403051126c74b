package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventType is the discriminant carried by every frame in the "type" field.
type EventType string

const (
	TypeMove           EventType = "move"
	TypeGameOver       EventType = "game_over"
	TypeError          EventType = "error"
	TypeOnlineUsers    EventType = "online_users"
	TypeInvite         EventType = "invite"
	TypeInviteResponse EventType = "invite_response"
	TypeInviteSent     EventType = "invite_sent"
	TypeGameStart      EventType = "game_start"
	TypeResign         EventType = "resign"
)

// ErrMalformed marks frames that cannot become a typed event: undecodable JSON,
// an unknown discriminant, or missing required fields. Such frames are dropped
// at the channel boundary and never reach a controller.
var ErrMalformed = errors.New("malformed frame")

// Event is one decoded server frame.
type Event interface {
	EventType() EventType
}

// Move is a server-confirmed move for a game.
type Move struct {
	GameID     int64  `json:"gameId"`
	MoveNumber int    `json:"moveNumber"`
	From       string `json:"from"`
	To         string `json:"to"`
	Piece      string `json:"piece"`
	ByUserID   int64  `json:"byUserId"`
}

func (Move) EventType() EventType { return TypeMove }

// GameOver ends a game. EndReason is "resign" or another server-defined cause.
type GameOver struct {
	GameID       int64  `json:"gameId"`
	WinnerUserID int64  `json:"winnerUserId"`
	EndReason    string `json:"endReason"`
}

func (GameOver) EventType() EventType { return TypeGameOver }

// ServerError is a non-fatal rejection surfaced as a status message.
type ServerError struct {
	Message string `json:"message"`
}

func (ServerError) EventType() EventType { return TypeError }

// OnlineUsers replaces the whole roster.
type OnlineUsers struct {
	Users UserList `json:"users"`
}

func (OnlineUsers) EventType() EventType { return TypeOnlineUsers }

// Invite is an incoming invitation from another player.
type Invite struct {
	FromUserID   int64  `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
}

func (Invite) EventType() EventType { return TypeInvite }

// InviteResponse reports the remote side's answer to an invite we sent.
type InviteResponse struct {
	FromUserID int64 `json:"fromUserId"`
	Accepted   bool  `json:"accepted"`
}

func (InviteResponse) EventType() EventType { return TypeInviteResponse }

// InviteSent acknowledges that the server relayed our invite.
type InviteSent struct {
	ToUserID   int64  `json:"toUserId"`
	ToUsername string `json:"toUsername"`
}

func (InviteSent) EventType() EventType { return TypeInviteSent }

// GameStart tells both players to enter a game. Color and OpponentID are
// informational; GameID is the trigger and must be non-zero.
type GameStart struct {
	GameID     int64  `json:"gameId"`
	Color      string `json:"color,omitempty"`
	OpponentID int64  `json:"opponentId,omitempty"`
}

func (GameStart) EventType() EventType { return TypeGameStart }

type head struct {
	Type string `json:"type"`
}

// Decode turns one raw frame into a typed event. The returned error wraps
// ErrMalformed for anything that should be discarded at the boundary.
func Decode(data []byte) (Event, error) {
	var h head
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t := EventType(strings.TrimSpace(h.Type))
	switch t {
	case TypeMove:
		var ev Move
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if ev.GameID <= 0 || ev.MoveNumber <= 0 || ev.From == "" || ev.To == "" {
			return nil, fmt.Errorf("%w: incomplete move", ErrMalformed)
		}
		return ev, nil
	case TypeGameOver:
		var ev GameOver
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if ev.GameID <= 0 {
			return nil, fmt.Errorf("%w: game_over without gameId", ErrMalformed)
		}
		return ev, nil
	case TypeError:
		var ev ServerError
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeOnlineUsers:
		var ev OnlineUsers
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeInvite:
		var ev Invite
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if ev.FromUserID <= 0 {
			return nil, fmt.Errorf("%w: invite without sender", ErrMalformed)
		}
		return ev, nil
	case TypeInviteResponse:
		var ev InviteResponse
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeInviteSent:
		var ev InviteSent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeGameStart:
		var ev GameStart
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, h.Type)
	}
}
