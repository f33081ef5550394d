package model

import "time"

// Session is the registry row for one uploaded deck. The derived artifacts
// live on disk under the session's data directory, keyed by the token.
type Session struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Token      string    `gorm:"size:64;uniqueIndex;not null" json:"token"`
	DeckName   string    `gorm:"size:255;not null" json:"deck_name"`
	SlideCount int       `gorm:"not null" json:"slide_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
