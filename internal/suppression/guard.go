// Package suppression enforces the global do-not-contact list. The guard is
// the single answer to "may we contact this address" and is consulted before
// every scheduling and every send decision. Suppressions are permanent:
// created once, idempotently, and never deleted.
package suppression

import (
	"context"
	"fmt"
	"log"

	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Well-known suppression reasons.
const (
	ReasonUnsubscribeReply     = "unsubscribe_reply"
	ReasonUnsubscribeLinkClick = "unsubscribe_link_click"
	ReasonManual               = "manual"
	ReasonHardBounce           = "hard_bounce"
)

// Guard wraps the store's suppression set behind normalized-address checks.
type Guard struct {
	store *outreach.Store
}

// NewGuard creates a suppression guard.
func NewGuard(store *outreach.Store) *Guard {
	return &Guard{store: store}
}

// IsSuppressed reports whether the address may not be contacted.
// The empty address is treated as suppressed: nothing can be sent to it.
func (g *Guard) IsSuppressed(ctx context.Context, email string) (bool, error) {
	normalized := outreach.NormalizeEmail(email)
	if normalized == "" {
		return true, nil
	}
	suppressed, err := g.store.IsSuppressed(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("suppression check: %w", err)
	}
	return suppressed, nil
}

// Add places an address on the do-not-contact list. Safe to call repeatedly
// and safe to call for an address never seen before; returns true only when
// a new entry was created.
func (g *Guard) Add(ctx context.Context, email, reason string) (bool, error) {
	normalized := outreach.NormalizeEmail(email)
	if normalized == "" {
		return false, fmt.Errorf("cannot suppress empty address")
	}
	created, err := g.store.AddSuppression(ctx, normalized, reason)
	if err != nil {
		return false, fmt.Errorf("add suppression: %w", err)
	}
	if created {
		log.Printf("[Suppression] Added %s (reason: %s)", logger.RedactEmail(normalized), reason)
	}
	return created, nil
}

// List returns the full suppression list, newest first.
func (g *Guard) List(ctx context.Context) ([]*outreach.Suppression, error) {
	return g.store.ListSuppressions(ctx)
}
