package domain

import (
	"database/sql"
)

// ApiClient is a caller allowed to raise triggers over HTTP. KeyHash is a bcrypt hash
// of the secret part of the key.
type ApiClient struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	KeyID   string       `json:"keyId"`
	KeyHash string       `json:"-"`
	Created sql.NullTime `json:"created"`
	Enabled sql.NullBool `json:"enabled"`
}
