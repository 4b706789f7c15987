// Package domain contains core business types and interfaces.
//
// This file defines quota accounting types. A quota day is a calendar
// date in the business timezone; consumption is tracked per
// (user, day-key) and never reset, refunded, or decremented.
package domain

import "time"

// CounterKey addresses one user's consumption for one quota day.
type CounterKey struct {
	UserID string
	DayKey string // Canonical YYYY-MM-DD in the business timezone
}

// Reservation is the result of an admitted quota reservation.
// Consumed includes the unit this reservation spent.
type Reservation struct {
	UserID    string
	DayKey    string
	Consumed  int
	Ceiling   int
	Remaining int
}

// QuotaUsage is a read-only snapshot of a user's quota day.
type QuotaUsage struct {
	UserID   string
	DayKey   string
	Consumed int
	Ceiling  int
	ResetsIn time.Duration
}

// Remaining returns the unconsumed allowance, never negative. A plan
// downgrade can leave Consumed above the current ceiling.
func (u QuotaUsage) Remaining() int {
	if r := u.Ceiling - u.Consumed; r > 0 {
		return r
	}
	return 0
}

// Admission is a granted request: one quota unit has been reserved and
// the request may proceed. Failures after admission do not refund it.
type Admission struct {
	UserID    string
	Plan      PlanCode
	DayKey    string
	Remaining int
}
