package wire

// Outbound frames. Each constructor sets the discriminant so callers cannot
// send an untagged frame.

// MoveSubmit asks the server to play a move. The server echoes a Move event
// back when it accepts; there is no optimistic local apply.
type MoveSubmit struct {
	Type   EventType `json:"type"`
	GameID int64     `json:"gameId"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Piece  string    `json:"piece"`
}

func NewMoveSubmit(gameID int64, from, to, piece string) MoveSubmit {
	return MoveSubmit{Type: TypeMove, GameID: gameID, From: from, To: to, Piece: piece}
}

type InviteSubmit struct {
	Type     EventType `json:"type"`
	ToUserID int64     `json:"toUserId"`
}

func NewInvite(toUserID int64) InviteSubmit {
	return InviteSubmit{Type: TypeInvite, ToUserID: toUserID}
}

type InviteResponseSubmit struct {
	Type       EventType `json:"type"`
	FromUserID int64     `json:"fromUserId"`
	Accepted   bool      `json:"accepted"`
}

func NewInviteResponse(fromUserID int64, accepted bool) InviteResponseSubmit {
	return InviteResponseSubmit{Type: TypeInviteResponse, FromUserID: fromUserID, Accepted: accepted}
}

type ResignSubmit struct {
	Type   EventType `json:"type"`
	GameID int64     `json:"gameId"`
}

func NewResign(gameID int64) ResignSubmit {
	return ResignSubmit{Type: TypeResign, GameID: gameID}
}
