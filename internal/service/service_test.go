package service

// Shared fixtures for service tests. The pinned instant is noon in the
// business timezone (UTC+3), so a full half-day remains before the
// quota day rolls over.

import (
	"io"
	"log/slog"
	"time"

	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
)

// testNow is 2025-06-15 12:00:00 +03:00.
var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

const testDayKey = "2025-06-15"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCalendar() clock.Calendar {
	return clock.NewCalendar(3)
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		domain.PlanFree: {
			Code:           domain.PlanFree,
			Name:           "Free",
			DailyLimit:     5,
			PerMinuteLimit: 60,
			Active:         true,
		},
		domain.PlanPremium: {
			Code:           domain.PlanPremium,
			Name:           "Premium",
			PriceKES:       499,
			DurationDays:   30,
			DailyLimit:     200,
			PerMinuteLimit: 60,
			Active:         true,
		},
	}
}
