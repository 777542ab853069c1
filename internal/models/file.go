package models

import "time"

// File is metadata for one uploaded blob. RelPath is always relative to the
// uploads root; the storage layer refuses paths that resolve outside it.
type File struct {
	ID        string
	UserID    string
	Name      string
	MimeType  string
	SizeBytes int64
	RelPath   string
	Batch     string
	CreatedAt time.Time
}
