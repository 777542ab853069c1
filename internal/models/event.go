package models

import "time"

type EventType string

const (
	EventLogin  EventType = "login"
	EventUpload EventType = "upload"
)

// Event is an append-only audit entry. Writing one is always best-effort.
type Event struct {
	ID        string
	Type      EventType
	UserID    string
	Email     string
	Metadata  map[string]string
	CreatedAt time.Time
}
