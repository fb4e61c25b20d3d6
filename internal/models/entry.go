// Package models defines the domain types for ledgernotes.
package models

import "time"

// Entry is one decoded note: a Unix timestamp key and its message text.
type Entry struct {
	UnixTimestamp int64  `json:"unixTimestamp"`
	Content       string `json:"content"`
}

// Snapshot describes the last locally indexed retrieval for a user.
type Snapshot struct {
	UserID      string    `json:"user_id"`
	Address     string    `json:"address,omitempty"`
	Source      string    `json:"source"`
	Checksum    string    `json:"checksum"`
	EntryCount  int       `json:"entry_count"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
