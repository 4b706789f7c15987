// Package domain contains core business types and interfaces.
//
// This file defines the plan catalog and the entitlement ceilings each
// plan grants. Ceilings are resolved here, never inside the quota ledger.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlanCode identifies a subscription plan.
type PlanCode string

const (
	PlanFree    PlanCode = "FREE"
	PlanPremium PlanCode = "PREMIUM"
)

var titleCaser = cases.Title(language.English)

// DisplayName returns the human-readable plan name ("FREE" -> "Free").
func (c PlanCode) DisplayName() string {
	if c == "" {
		return PlanFree.DisplayName()
	}
	return titleCaser.String(strings.ToLower(string(c)))
}

// Plan describes a purchasable (or default) plan and its ceilings.
type Plan struct {
	Code           PlanCode
	Name           string
	PriceKES       int // Whole shillings; free plan is 0
	DurationDays   int // Length of one paid period; 0 for the free plan
	DailyLimit     int // Analyses per quota day
	PerMinuteLimit int // Requests per fixed one-minute window
	Active         bool
}

// Duration returns the length of one paid period.
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// Catalog maps plan codes to their definitions.
type Catalog map[PlanCode]Plan

// Plan returns the plan for a code, defaulting to the free plan for
// unknown codes.
func (c Catalog) Plan(code PlanCode) Plan {
	if p, ok := c[code]; ok {
		return p
	}
	return c[PlanFree]
}

// Purchasable returns the active paid plans in the catalog.
func (c Catalog) Purchasable() []Plan {
	var plans []Plan
	for _, p := range c {
		if p.Active && p.PriceKES > 0 {
			plans = append(plans, p)
		}
	}
	return plans
}

// Entitlements are the ceilings governing a user at a given instant.
type Entitlements struct {
	Plan           PlanCode
	DailyLimit     int
	PerMinuteLimit int
}

// ResolveEntitlements maps a subscription snapshot to the ceilings that
// govern it at the given instant. Premium ceilings apply only while the
// subscription is Active on the premium plan and unexpired; every other
// state, including a nil subscription, resolves to the free plan.
// Deterministic: same inputs always yield the same result.
func ResolveEntitlements(sub *Subscription, catalog Catalog, now time.Time) Entitlements {
	plan := PlanFree
	if sub != nil && sub.IsPremiumActive(now) {
		plan = sub.Plan
	}
	p := catalog.Plan(plan)
	return Entitlements{
		Plan:           p.Code,
		DailyLimit:     p.DailyLimit,
		PerMinuteLimit: p.PerMinuteLimit,
	}
}
