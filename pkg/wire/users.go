package wire

import (
	"encoding/json"
	"sort"
)

// User is one entry of the online roster.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserList accepts both wire shapes of the roster: a plain array and a keyed
// object (id string -> user). The keyed form is normalized into a list sorted
// by id so replacement stays deterministic.
type UserList []User

func (l *UserList) UnmarshalJSON(data []byte) error {
	var arr []User
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var keyed map[string]User
	if err := json.Unmarshal(data, &keyed); err != nil {
		return err
	}
	out := make([]User, 0, len(keyed))
	for _, u := range keyed {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	*l = out
	return nil
}
