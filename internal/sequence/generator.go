// Package sequence implements the campaign cadence engine: the generator
// that fans a launched campaign out into one pending EmailSend per lead per
// step, and the gate that re-validates every send immediately before
// dispatch.
package sequence

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/suppression"
)

// stepWindows maps each sequence step to its [min, max] delay in days,
// relative to campaign launch. Step 1 goes out on the next dispatch cycle.
// The windows are disjoint and increasing, so step k's date floor is always
// at or past step k-1's window.
var stepWindows = map[int][2]int{
	1: {0, 0},
	2: {3, 5},
	3: {7, 9},
	4: {12, 15},
	5: {18, 21},
}

// Send-window clock bounds: scheduled sends land between 09:00 and 11:55
// at a uniformly random minute, spreading load so the cadence doesn't look
// automated.
const (
	sendWindowStartHour = 9
	sendWindowEndHour   = 11
	sendWindowMaxMinute = 55
)

// Result reports the outcome of a fan-out.
type Result struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}

// Generator expands a launched campaign's lead list into pending EmailSends.
type Generator struct {
	store *outreach.Store
	guard *suppression.Guard

	// Injectable for deterministic tests.
	now func() time.Time
	rng *rand.Rand
}

// NewGenerator creates a sequence generator.
func NewGenerator(store *outreach.Store, guard *suppression.Guard) *Generator {
	return &Generator{
		store: store,
		guard: guard,
		now:   func() time.Time { return time.Now().UTC() },
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the time source (tests).
func (g *Generator) SetClock(now func() time.Time) { g.now = now }

// SetRand overrides the jitter source (tests).
func (g *Generator) SetRand(rng *rand.Rand) { g.rng = rng }

// Enqueue builds every (lead, step) EmailSend for the campaign and inserts
// them in a single bulk write. Leads with no email address or a suppressed
// address are skipped entirely; filtering happens once, here — leads added
// to a bundle after launch are not picked up retroactively.
//
// Callers must guarantee launch is at-most-once per campaign (the
// campaign-status check upstream); re-running would duplicate sends.
func (g *Generator) Enqueue(ctx context.Context, campaignID uuid.UUID, leadIDs []uuid.UUID) (Result, error) {
	launchedAt := g.now()

	var sends []*outreach.EmailSend
	skipped := 0

	for _, leadID := range leadIDs {
		lead, err := g.store.GetLead(ctx, leadID)
		if err != nil {
			return Result{}, fmt.Errorf("resolve lead %s: %w", leadID, err)
		}
		if lead == nil || lead.Email == "" {
			skipped++
			continue
		}

		suppressed, err := g.guard.IsSuppressed(ctx, lead.Email)
		if err != nil {
			return Result{}, err
		}
		if suppressed {
			skipped++
			continue
		}

		for step := 1; step <= outreach.SequenceSteps; step++ {
			sends = append(sends, &outreach.EmailSend{
				CampaignID:   campaignID,
				LeadID:       leadID,
				SequenceStep: step,
				Status:       outreach.SendPending,
				ScheduledAt:  g.scheduleFor(step, launchedAt),
			})
		}
	}

	if len(sends) > 0 {
		if err := g.store.BulkCreateEmailSends(ctx, sends); err != nil {
			return Result{}, fmt.Errorf("bulk insert sends: %w", err)
		}
	}

	log.Printf("[Sequence] Campaign %s: queued %d sends, skipped %d leads",
		campaignID, len(sends), skipped)
	return Result{Queued: len(sends), Skipped: skipped}, nil
}

// scheduleFor computes the jittered send time for one step. Each step's
// delay is drawn independently, relative to launch time, not cumulatively
// on the previous step's draw.
func (g *Generator) scheduleFor(step int, launchedAt time.Time) time.Time {
	window := stepWindows[step]
	if step == 1 {
		// First touch goes out on the next dispatcher cycle.
		return launchedAt
	}

	delayDays := window[0] + g.rng.Intn(window[1]-window[0]+1)
	hour := sendWindowStartHour + g.rng.Intn(sendWindowEndHour-sendWindowStartHour+1)
	minute := g.rng.Intn(sendWindowMaxMinute + 1)

	day := launchedAt.AddDate(0, 0, delayDays)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}
