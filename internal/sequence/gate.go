package sequence

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/suppression"
)

// Gate rejection reasons, recorded verbatim on failed sends.
const (
	ReasonNoLeadEmail         = "no_lead_email"
	ReasonSuppressed          = "suppressed"
	ReasonLeadAlreadyReplied  = "lead_already_replied"
	ReasonPreviousStepBounced = "previous_step_bounced"
)

// Decision is the tagged result of a gate evaluation: either eligible, or
// rejected with exactly one machine-readable reason. Only the first failing
// check is reported — the caller needs one actionable status, not a full
// diagnostic set.
type Decision struct {
	Eligible bool
	Reason   string
}

func eligible() Decision              { return Decision{Eligible: true} }
func rejected(reason string) Decision { return Decision{Reason: reason} }

// gateCheck is one named precondition. fail returns true when the check
// rejects the send.
type gateCheck struct {
	reason string
	fail   func(ctx context.Context, send *outreach.EmailSend, lead *outreach.Lead) (bool, error)
}

// Gate runs the cascading pre-send eligibility checks. It is evaluated
// immediately before every send attempt — a re-check, not a cache of the
// generator's filtering, because a reply, bounce, or suppression may have
// arrived since the send was scheduled.
type Gate struct {
	store  *outreach.Store
	guard  *suppression.Guard
	checks []gateCheck
}

// NewGate creates a send gate.
func NewGate(store *outreach.Store, guard *suppression.Guard) *Gate {
	g := &Gate{store: store, guard: guard}
	g.checks = []gateCheck{
		{reason: ReasonNoLeadEmail, fail: g.noLeadEmail},
		{reason: ReasonSuppressed, fail: g.suppressed},
		{reason: ReasonLeadAlreadyReplied, fail: g.leadAlreadyReplied},
		{reason: ReasonPreviousStepBounced, fail: g.previousStepBounced},
	}
	return g
}

// Evaluate runs the checks in order, first failure wins. A store error
// aborts evaluation without a decision; the next cycle re-evaluates.
func (g *Gate) Evaluate(ctx context.Context, send *outreach.EmailSend) (Decision, error) {
	lead, err := g.store.GetLead(ctx, send.LeadID)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve lead %s: %w", send.LeadID, err)
	}

	for _, check := range g.checks {
		failed, err := check.fail(ctx, send, lead)
		if err != nil {
			return Decision{}, fmt.Errorf("gate check %s: %w", check.reason, err)
		}
		if failed {
			return rejected(check.reason), nil
		}
	}
	return eligible(), nil
}

func (g *Gate) noLeadEmail(ctx context.Context, send *outreach.EmailSend, lead *outreach.Lead) (bool, error) {
	return lead == nil || lead.Email == "", nil
}

func (g *Gate) suppressed(ctx context.Context, send *outreach.EmailSend, lead *outreach.Lead) (bool, error) {
	return g.guard.IsSuppressed(ctx, lead.Email)
}

// leadAlreadyReplied rejects any step once the lead has replied within this
// campaign, regardless of which step drew the reply.
func (g *Gate) leadAlreadyReplied(ctx context.Context, send *outreach.EmailSend, lead *outreach.Lead) (bool, error) {
	return g.store.LeadRepliedInCampaign(ctx, send.LeadID, send.CampaignID)
}

// previousStepBounced rejects step N when step N-1 for the same
// (lead, campaign) pair bounced. Step 1 has no predecessor.
func (g *Gate) previousStepBounced(ctx context.Context, send *outreach.EmailSend, lead *outreach.Lead) (bool, error) {
	if send.SequenceStep <= 1 {
		return false, nil
	}
	prev, err := g.store.GetStepEmailSend(ctx, send.LeadID, send.CampaignID, send.SequenceStep-1)
	if err != nil {
		return false, err
	}
	return prev != nil && prev.Status == outreach.SendBounced, nil
}
