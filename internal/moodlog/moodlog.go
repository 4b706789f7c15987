// Package moodlog records analysis outcomes into a user's mood history.
//
// Recording is a soft-fail collaborator of the analysis flow: a failed
// insert is reported to the caller as a warning, never as a failure of
// the analysis itself.
package moodlog

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/store"
)

// Notes longer than this are truncated before persisting.
const maxNoteLen = 1000

// DefaultRecentLimit bounds history reads when the caller passes no limit.
const DefaultRecentLimit = 20

// Recorder persists and reads back mood history entries.
type Recorder interface {
	// Record appends one entry. The note is truncated to the storage cap;
	// intensity is derived from the score.
	Record(ctx context.Context, userID, label string, score float64, note string) (*domain.MoodEntry, error)

	// Recent returns the user's newest entries, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]*domain.MoodEntry, error)
}

type recorder struct {
	store  store.MoodLogStore
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a store-backed Recorder.
func New(s store.MoodLogStore, c clock.Clock, logger *slog.Logger) Recorder {
	return &recorder{
		store:  s,
		clock:  c,
		logger: logger,
	}
}

// Record appends one entry to the user's history.
func (r *recorder) Record(ctx context.Context, userID, label string, score float64, note string) (*domain.MoodEntry, error) {
	const op = "moodlog.record"

	if len(note) > maxNoteLen {
		note = note[:maxNoteLen]
	}

	entry := &domain.MoodEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Label:     label,
		Score:     score,
		Intensity: domain.IntensityFromScore(score),
		Note:      note,
		CreatedAt: r.clock.Now(),
	}

	if err := r.store.InsertMoodEntry(ctx, entry); err != nil {
		return nil, domain.Internal(err, op, "failed to insert mood entry")
	}

	r.logger.Debug("Mood entry recorded",
		"user_id", userID,
		"label", label,
		"intensity", entry.Intensity,
	)

	return entry, nil
}

// Recent returns the user's newest entries, newest first.
func (r *recorder) Recent(ctx context.Context, userID string, limit int) ([]*domain.MoodEntry, error) {
	const op = "moodlog.recent"

	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	entries, err := r.store.RecentMoodEntries(ctx, userID, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list mood entries")
	}

	return entries, nil
}
