// Package identity carries the local player's identity. It is constructed
// once at startup from configuration and handed explicitly to every
// controller that needs it; there is deliberately no ambient global.
package identity

// Identity identifies the local player to the server and to the turn gate.
type Identity struct {
	UserID   int64
	Username string
	Token    string
}

// Known reports whether a real user id is present. Controllers treat an
// unknown identity as "no color assigned": the turn gate stays closed.
func (id Identity) Known() bool {
	return id.UserID > 0
}
