package core

import "time"

// SyncRecord is one remote-sync outcome as kept in the local journal.
type SyncRecord struct {
	ID       string        `json:"id"`
	Entity   string        `json:"entity"`
	Op       string        `json:"op"`
	OK       bool          `json:"ok"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}
