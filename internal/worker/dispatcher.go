package worker

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/content"
	"github.com/ignite/outreach-engine/internal/mailer"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/sequence"
)

// CycleStats summarizes one dispatch cycle.
type CycleStats struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
}

// Dispatcher drains due EmailSends on a fixed cycle. Each cycle re-derives
// the remaining daily budget from the store, so restarts and concurrent
// processes never need a shared counter. Sends are strictly sequential with
// a randomized inter-send pause.
type Dispatcher struct {
	store     *outreach.Store
	gate      *sequence.Gate
	content   content.Generator
	transport mailer.Transport
	sender    config.SenderConfig
	sending   config.SendingConfig

	rng   *rand.Rand
	sleep func(time.Duration)

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	wake    chan struct{}
}

// NewDispatcher creates a dispatcher. wake is an optional channel that
// triggers an immediate cycle (the kick listener's Dispatch channel); nil
// means timer-only operation.
func NewDispatcher(store *outreach.Store, gate *sequence.Gate, gen content.Generator,
	transport mailer.Transport, sender config.SenderConfig, sending config.SendingConfig,
	wake chan struct{}) *Dispatcher {
	return &Dispatcher{
		store:     store,
		gate:      gate,
		content:   gen,
		transport: transport,
		sender:    sender,
		sending:   sending,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:     time.Sleep,
		wake:      wake,
	}
}

// SetSleep replaces the inter-send pause for tests.
func (d *Dispatcher) SetSleep(fn func(time.Duration)) { d.sleep = fn }

// SetRand replaces the throttle jitter source for tests.
func (d *Dispatcher) SetRand(rng *rand.Rand) { d.rng = rng }

// Start launches the dispatch loop: one cycle immediately, then every
// CycleMinutes, plus whenever a kick arrives.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go d.loop(ctx)

	log.Printf("[Dispatcher] Started (cycle: %dm, daily limit: %d)",
		d.sending.CycleMinutes, d.sending.DailySendLimit)
}

// Stop halts the dispatch loop and waits for an in-flight cycle to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	log.Printf("[Dispatcher] Stopped")
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Duration(d.sending.CycleMinutes) * time.Minute)
	defer ticker.Stop()

	d.runCycleLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runCycleLogged(ctx)
		case <-d.wake:
			d.runCycleLogged(ctx)
		}
	}
}

func (d *Dispatcher) runCycleLogged(ctx context.Context) {
	stats, err := d.RunCycle(ctx)
	if err != nil {
		log.Printf("[Dispatcher] Cycle error: %v", err)
		return
	}
	if stats.Due > 0 {
		log.Printf("[Dispatcher] Cycle done: %d due, %d sent, %d failed, %d skipped",
			stats.Due, stats.Sent, stats.Failed, stats.Skipped)
	}
}

// RunCycle executes one dispatch pass. A store error on the budget or due
// queries aborts the cycle; per-record failures are isolated and never stop
// the remaining records.
func (d *Dispatcher) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	sentToday, err := d.store.CountEmailsSentToday(ctx)
	if err != nil {
		return stats, fmt.Errorf("count sent today: %w", err)
	}
	remaining := d.sending.DailySendLimit - sentToday
	if remaining <= 0 {
		log.Printf("[Dispatcher] Daily limit reached (%d/%d), skipping cycle",
			sentToday, d.sending.DailySendLimit)
		return stats, nil
	}

	lookahead := time.Duration(d.sending.LookaheadMinutes) * time.Minute
	due, err := d.store.GetDueEmailSends(ctx, remaining, lookahead)
	if err != nil {
		return stats, fmt.Errorf("fetch due sends: %w", err)
	}
	stats.Due = len(due)

	for i, send := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		switch d.process(ctx, send) {
		case outcomeSent:
			stats.Sent++
		case outcomeFailed:
			stats.Failed++
		case outcomeSkipped:
			stats.Skipped++
		}

		// Human-paced spacing between consecutive attempts.
		if i < len(due)-1 {
			d.sleep(d.throttle())
		}
	}
	return stats, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
)

// process attempts one send end to end. Every path out of here leaves the
// record in a terminal state or untouched (store errors, retried next cycle).
func (d *Dispatcher) process(ctx context.Context, send *outreach.EmailSend) outcome {
	decision, err := d.gate.Evaluate(ctx, send)
	if err != nil {
		log.Printf("[Dispatcher] Gate error for send %s: %v", send.ID, err)
		return outcomeSkipped
	}
	if !decision.Eligible {
		if err := d.store.MarkEmailSendFailed(ctx, send.ID, decision.Reason); err != nil {
			log.Printf("[Dispatcher] Failed to mark send %s: %v", send.ID, err)
		}
		return outcomeSkipped
	}

	lead, err := d.store.GetLead(ctx, send.LeadID)
	if err != nil || lead == nil {
		log.Printf("[Dispatcher] Lead lookup failed for send %s: %v", send.ID, err)
		return outcomeSkipped
	}
	campaign, err := d.store.GetCampaign(ctx, send.CampaignID)
	if err != nil || campaign == nil {
		log.Printf("[Dispatcher] Campaign lookup failed for send %s: %v", send.ID, err)
		return outcomeSkipped
	}

	priorSubjects, err := d.store.GetPriorSubjects(ctx, send.LeadID, send.CampaignID, send.SequenceStep)
	if err != nil {
		log.Printf("[Dispatcher] Prior subjects lookup failed for send %s: %v", send.ID, err)
		return outcomeSkipped
	}

	msg, err := d.content.GenerateSend(ctx, content.SendInput{
		Lead:          lead,
		Campaign:      campaign,
		Step:          send.SequenceStep,
		PriorSubjects: priorSubjects,
	})
	if err != nil {
		d.fail(ctx, send.ID, fmt.Sprintf("content generation failed: %v", err))
		return outcomeFailed
	}

	identity := d.identity(campaign)
	result, err := d.transport.Send(ctx, mailer.SendRequest{
		ToAddress: lead.Email,
		ToName:    lead.DisplayName(),
		Subject:   msg.Subject,
		HTMLBody:  msg.Body,
		Sender:    identity,
		ReplyTo:   d.replyTo(campaign),
	})
	if err != nil {
		d.fail(ctx, send.ID, fmt.Sprintf("send failed (%s): %v", mailer.KindOf(err), err))
		return outcomeFailed
	}

	if err := d.store.MarkEmailSendSent(ctx, send.ID, msg.Subject, msg.Body,
		identity.Email, result.MessageID); err != nil {
		log.Printf("[Dispatcher] Failed to record sent send %s: %v", send.ID, err)
	}

	log.Printf("[Dispatcher] Sent step %d to %s (campaign %s)",
		send.SequenceStep, logger.RedactEmail(lead.Email), campaign.Name)
	return outcomeSent
}

func (d *Dispatcher) fail(ctx context.Context, sendID uuid.UUID, note string) {
	if err := d.store.MarkEmailSendFailed(ctx, sendID, note); err != nil {
		log.Printf("[Dispatcher] Failed to mark send %s failed: %v", sendID, err)
	}
}

// identity returns the outbound identity, preferring the campaign's own
// sender over the global default.
func (d *Dispatcher) identity(campaign *outreach.Campaign) mailer.Identity {
	identity := mailer.Identity{Name: d.sender.Name, Email: d.sender.Email}
	if campaign.SenderName != "" {
		identity.Name = campaign.SenderName
	}
	if campaign.SenderEmail != "" {
		identity.Email = campaign.SenderEmail
	}
	return identity
}

func (d *Dispatcher) replyTo(campaign *outreach.Campaign) string {
	if campaign.ReplyTo != "" {
		return campaign.ReplyTo
	}
	return d.sender.ReplyTo
}

// throttle picks a random pause in the configured window.
func (d *Dispatcher) throttle() time.Duration {
	min := d.sending.ThrottleMinSeconds
	max := d.sending.ThrottleMaxSeconds
	if max <= min {
		return time.Duration(min) * time.Second
	}
	return time.Duration(min+d.rng.Intn(max-min+1)) * time.Second
}
