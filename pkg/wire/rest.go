package wire

// REST contracts used to bootstrap a session. These mirror the server's
// snapshot endpoints; the live stream uses the Event types instead.

// MoveRecord is one persisted move as returned by the history endpoints.
type MoveRecord struct {
	ID         int64  `json:"id"`
	MoveNumber int    `json:"moveNumber"`
	FromSquare string `json:"fromSquare"`
	ToSquare   string `json:"toSquare"`
	Piece      string `json:"piece"`
	ByUserID   int64  `json:"byUserId"`
	CreatedAt  string `json:"createdAt"`
}

// GameState is the authoritative snapshot of the caller's active game.
// Status is "ACTIVE" or "FINISHED"; WinnerUserID and EndReason are only
// meaningful for finished games.
type GameState struct {
	GameID       int64        `json:"gameId"`
	WhiteUserID  int64        `json:"whiteUserId"`
	BlackUserID  int64        `json:"blackUserId"`
	Status       string       `json:"status"`
	WinnerUserID int64        `json:"winnerUserId,omitempty"`
	EndReason    string       `json:"endReason,omitempty"`
	Moves        []MoveRecord `json:"moves"`
}

const (
	StatusActive   = "ACTIVE"
	StatusFinished = "FINISHED"
)
