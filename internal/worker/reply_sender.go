package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/mailer"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// claimBatchSize bounds how many due reply jobs one sweep picks up.
const claimBatchSize = 50

// ReplySender delivers approved response drafts. The periodic sweep is the
// single delivery mechanism: it re-enqueues any approved undelivered reply
// and then works off the due jobs, which covers both the delayed auto-reply
// path and approvals whose synchronous send failed.
type ReplySender struct {
	store     *outreach.Store
	transport mailer.Transport
	sender    config.SenderConfig
	sweep     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	wake    chan struct{}
}

// NewReplySender creates a reply sender. wake optionally triggers an
// immediate sweep (the kick listener's Replies channel); nil means
// timer-only operation.
func NewReplySender(store *outreach.Store, transport mailer.Transport,
	sender config.SenderConfig, sweepMinutes int, wake chan struct{}) *ReplySender {
	return &ReplySender{
		store:     store,
		transport: transport,
		sender:    sender,
		sweep:     time.Duration(sweepMinutes) * time.Minute,
		wake:      wake,
	}
}

// Start launches the sweep loop.
func (rs *ReplySender) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.running {
		return
	}
	rs.running = true

	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel

	rs.wg.Add(1)
	go rs.loop(ctx)

	log.Printf("[ReplySender] Started (sweep: %s)", rs.sweep)
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (rs *ReplySender) Stop() {
	rs.mu.Lock()
	if !rs.running {
		rs.mu.Unlock()
		return
	}
	rs.running = false
	rs.cancel()
	rs.mu.Unlock()

	rs.wg.Wait()
	log.Printf("[ReplySender] Stopped")
}

func (rs *ReplySender) loop(ctx context.Context) {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-rs.wake:
		}

		if sent, err := rs.RunSweep(ctx); err != nil {
			log.Printf("[ReplySender] Sweep error: %v", err)
		} else if sent > 0 {
			log.Printf("[ReplySender] Sweep delivered %d replies", sent)
		}
	}
}

// RunSweep re-enqueues approved undelivered replies that lack a live job,
// then claims and sends everything due. Returns the number delivered.
func (rs *ReplySender) RunSweep(ctx context.Context) (int, error) {
	pending, err := rs.store.GetApprovedUndelivered(ctx)
	if err != nil {
		return 0, fmt.Errorf("list approved undelivered: %w", err)
	}
	now := time.Now().UTC()
	for _, reply := range pending {
		exists, err := rs.store.HasPendingReplyJob(ctx, reply.ID)
		if err != nil {
			return 0, fmt.Errorf("check pending job: %w", err)
		}
		if exists {
			continue
		}
		if err := rs.store.EnqueueReplyJob(ctx, reply.ID, now); err != nil {
			return 0, fmt.Errorf("re-enqueue reply %s: %w", reply.ID, err)
		}
	}

	jobs, err := rs.store.ClaimDueReplyJobs(ctx, claimBatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due jobs: %w", err)
	}

	sent := 0
	for _, job := range jobs {
		if err := rs.SendReply(ctx, job.ReplyID); err != nil {
			log.Printf("[ReplySender] Reply %s failed: %v", job.ReplyID, err)
			if err := rs.store.FailReplyJob(ctx, job.ID); err != nil {
				log.Printf("[ReplySender] Failed to mark job %s: %v", job.ID, err)
			}
			continue
		}
		if err := rs.store.CompleteReplyJob(ctx, job.ID); err != nil {
			log.Printf("[ReplySender] Failed to complete job %s: %v", job.ID, err)
		}
		sent++
	}
	return sent, nil
}

// SendReply delivers one reply's draft. No-ops if the reply was already
// delivered, was dismissed, or has no draft. On transport failure the reply
// state is unchanged; the next sweep retries it.
func (rs *ReplySender) SendReply(ctx context.Context, replyID uuid.UUID) error {
	reply, err := rs.store.GetReply(ctx, replyID)
	if err != nil {
		return fmt.Errorf("load reply: %w", err)
	}
	if reply == nil {
		return fmt.Errorf("reply %s not found", replyID)
	}
	if reply.Delivered || reply.Dismissed {
		return nil
	}
	if reply.Draft == "" {
		log.Printf("[ReplySender] Reply %s has no draft, skipping", replyID)
		return nil
	}

	lead, err := rs.store.GetLead(ctx, reply.LeadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	if lead == nil || lead.Email == "" {
		return fmt.Errorf("reply %s has no addressable lead", replyID)
	}

	identity, inReplyTo, err := rs.origin(ctx, reply)
	if err != nil {
		return err
	}

	err = rs.transport.SendReply(ctx, mailer.ReplyRequest{
		ToAddress:          lead.Email,
		ToName:             lead.DisplayName(),
		Body:               reply.Draft,
		Sender:             identity,
		InReplyToMessageID: inReplyTo,
	})
	if err != nil {
		return fmt.Errorf("send reply to %s: %w", logger.RedactEmail(lead.Email), err)
	}

	if err := rs.store.MarkReplyDelivered(ctx, replyID); err != nil {
		return fmt.Errorf("mark reply delivered: %w", err)
	}
	log.Printf("[ReplySender] Delivered reply %s to %s", replyID, logger.RedactEmail(lead.Email))
	return nil
}

// origin resolves the sender identity and threading message-id from the
// originating send's campaign, falling back to the global sender.
func (rs *ReplySender) origin(ctx context.Context, reply *outreach.Reply) (mailer.Identity, string, error) {
	identity := mailer.Identity{Name: rs.sender.Name, Email: rs.sender.Email}
	if !reply.EmailSendID.Valid {
		return identity, "", nil
	}

	send, err := rs.store.GetEmailSend(ctx, reply.EmailSendID.UUID)
	if err != nil {
		return identity, "", fmt.Errorf("load originating send: %w", err)
	}
	if send == nil {
		return identity, "", nil
	}

	campaign, err := rs.store.GetCampaign(ctx, send.CampaignID)
	if err != nil {
		return identity, "", fmt.Errorf("load originating campaign: %w", err)
	}
	if campaign != nil {
		if campaign.SenderName != "" {
			identity.Name = campaign.SenderName
		}
		if campaign.SenderEmail != "" {
			identity.Email = campaign.SenderEmail
		}
	}
	return identity, send.MessageID, nil
}
