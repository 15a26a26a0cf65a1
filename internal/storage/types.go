package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": JSON snapshot next to Path
//   - "sqlite": SQLite database file at Path
//   - "mongodb": MongoDB server at URI
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	URI         string
	Database    string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// Key scopes the state record, so several chats can share one database.
	Key string
}

// State mirrors what the poll loop needs to avoid resending after a restart.
// It is the only record kept: there is no message history.
type State struct {
	LastStatus string `json:"last_status" bson:"last_status"`
	// StatusKey identifies the reported homework and status independently of the message language.
	StatusKey string    `json:"status_key,omitempty" bson:"status_key"`
	LastError string    `json:"last_error" bson:"last_error"`
	Window    int64     `json:"window" bson:"window"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
