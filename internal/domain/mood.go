// Package domain contains core business types and interfaces.
//
// This file defines persisted mood history entries.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MoodEntry is one persisted analysis in a user's mood history.
type MoodEntry struct {
	ID        uuid.UUID
	UserID    string
	Label     string
	Score     float64
	Intensity int
	Note      string // Original text, as submitted
	CreatedAt time.Time
}
