// Package service contains the business logic layer.
//
// This file implements entitlement resolution: mapping a user's
// subscription snapshot to the ceilings that govern them right now.
package service

import (
	"context"

	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
)

// EntitlementService resolves the plan ceilings governing a user at the
// moment of the call. Resolution is dynamic: it always reflects the
// stored subscription, so a plan change shows up on the very next call
// with no cache to invalidate.
type EntitlementService interface {
	Resolve(ctx context.Context, userID string) (domain.Entitlements, error)
}

type entitlementService struct {
	subs    SubscriptionService
	catalog domain.Catalog
	clock   clock.Clock
}

// NewEntitlementService creates an EntitlementService.
func NewEntitlementService(subs SubscriptionService, catalog domain.Catalog, clk clock.Clock) EntitlementService {
	return &entitlementService{
		subs:    subs,
		catalog: catalog,
		clock:   clk,
	}
}

// Resolve loads the subscription snapshot (applying lazy expiry) and
// maps it to ceilings.
func (s *entitlementService) Resolve(ctx context.Context, userID string) (domain.Entitlements, error) {
	sub, err := s.subs.Current(ctx, userID)
	if err != nil {
		return domain.Entitlements{}, err
	}
	return domain.ResolveEntitlements(sub, s.catalog, s.clock.Now()), nil
}
