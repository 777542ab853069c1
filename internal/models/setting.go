package models

import "time"

// Setting is a generic key/value row; Value is raw JSON whose shape depends
// on the key.
type Setting struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}
