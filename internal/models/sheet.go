package models

import "time"

// Sheet is one reference cheat-sheet document.
type Sheet struct {
	ID        string
	Title     string
	Category  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
