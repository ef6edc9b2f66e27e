package worker

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/content"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/suppression"
)

// unsubscribeKeywords trigger immediate suppression, before any
// classification. Matched as case-insensitive substrings.
var unsubscribeKeywords = []string{
	"unsubscribe",
	"remove me",
	"stop emailing",
	"take me off",
	"opt out",
	"don't email",
	"please remove",
}

// maxRawReplyLength bounds stored reply text.
const maxRawReplyLength = 5000

// InboundReply is one inbound message as handed over by the mailbox webhook
// or the simulate endpoint.
type InboundReply struct {
	FromAddress        string
	Text               string
	InReplyToMessageID string
}

// ReplyProcessor ingests inbound replies: matches them to leads and sends,
// handles unsubscribe intent, classifies, drafts responses for actionable
// categories, and either auto-queues the response or parks it for review.
type ReplyProcessor struct {
	store     *outreach.Store
	guard     *suppression.Guard
	content   content.Generator
	autoReply config.AutoReplyConfig

	now func() time.Time
	rng *rand.Rand
}

// NewReplyProcessor creates a reply processor.
func NewReplyProcessor(store *outreach.Store, guard *suppression.Guard,
	gen content.Generator, autoReply config.AutoReplyConfig) *ReplyProcessor {
	return &ReplyProcessor{
		store:     store,
		guard:     guard,
		content:   gen,
		autoReply: autoReply,
		now:       func() time.Time { return time.Now().UTC() },
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock replaces the time source for tests.
func (p *ReplyProcessor) SetClock(now func() time.Time) { p.now = now }

// SetRand replaces the auto-reply delay jitter source for tests.
func (p *ReplyProcessor) SetRand(rng *rand.Rand) { p.rng = rng }

// Process runs one inbound reply through the full pipeline. Unknown senders
// are discarded silently; unsubscribe intent short-circuits to suppression
// with no Reply record.
func (p *ReplyProcessor) Process(ctx context.Context, msg InboundReply) error {
	lead, err := p.store.GetLeadByEmail(ctx, msg.FromAddress)
	if err != nil {
		return fmt.Errorf("resolve lead: %w", err)
	}
	if lead == nil {
		log.Printf("[ReplyProcessor] No lead for %s, discarding",
			logger.RedactEmail(msg.FromAddress))
		return nil
	}

	if hasUnsubscribeIntent(msg.Text) {
		if _, err := p.guard.Add(ctx, lead.Email, suppression.ReasonUnsubscribeReply); err != nil {
			return fmt.Errorf("suppress unsubscribe reply: %w", err)
		}
		log.Printf("[ReplyProcessor] Unsubscribe intent from %s, suppressed",
			logger.RedactEmail(lead.Email))
		return nil
	}

	send, err := p.resolveSend(ctx, lead.ID, msg.InReplyToMessageID)
	if err != nil {
		return fmt.Errorf("resolve originating send: %w", err)
	}

	category, err := p.content.Classify(ctx, msg.Text)
	if err != nil {
		log.Printf("[ReplyProcessor] Classification failed for %s: %v",
			logger.RedactEmail(lead.Email), err)
		category = outreach.CategoryUnknown
	}

	reply := &outreach.Reply{
		LeadID:     lead.ID,
		RawContent: outreach.Truncate(msg.Text, maxRawReplyLength),
		Category:   category,
	}
	if send != nil {
		reply.EmailSendID = uuid.NullUUID{UUID: send.ID, Valid: true}
	}
	if err := p.store.CreateReply(ctx, reply); err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}

	if send != nil {
		if err := p.store.MarkEmailSendReplied(ctx, send.ID); err != nil {
			log.Printf("[ReplyProcessor] Failed to mark send %s replied: %v", send.ID, err)
		}
	}

	log.Printf("[ReplyProcessor] Reply from %s classified as %s",
		logger.RedactEmail(lead.Email), category)

	if !outreach.ActionableCategories[category] {
		return nil
	}
	return p.draftResponse(ctx, reply, send, lead)
}

// draftResponse generates and stores a response draft, then either
// auto-approves it with a human-paced delay or leaves it for review.
func (p *ReplyProcessor) draftResponse(ctx context.Context, reply *outreach.Reply,
	send *outreach.EmailSend, lead *outreach.Lead) error {
	originalBody := ""
	if send != nil {
		originalBody = send.Body
	}

	draft, err := p.content.DraftReply(ctx, content.ReplyInput{
		OriginalBody: originalBody,
		ReplyText:    reply.RawContent,
		Category:     reply.Category,
		Lead:         lead,
	})
	if err != nil {
		// The reply stays in the queue without a draft; a reviewer can
		// still act on it.
		log.Printf("[ReplyProcessor] Draft generation failed for reply %s: %v", reply.ID, err)
		return nil
	}

	if err := p.store.SetReplyDraft(ctx, reply.ID, draft); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}

	if !p.autoReply.Enabled {
		log.Printf("[ReplyProcessor] Draft for reply %s awaiting approval", reply.ID)
		return nil
	}

	if err := p.store.ApproveReply(ctx, reply.ID); err != nil {
		return fmt.Errorf("auto-approve reply: %w", err)
	}
	runAfter := p.now().Add(p.autoReplyDelay())
	if err := p.store.EnqueueReplyJob(ctx, reply.ID, runAfter); err != nil {
		return fmt.Errorf("enqueue auto-reply job: %w", err)
	}

	log.Printf("[ReplyProcessor] Auto-reply for %s scheduled at %s",
		logger.RedactEmail(lead.Email), runAfter.Format(time.RFC3339))
	return nil
}

// resolveSend threads a reply back to its originating send: exact message-id
// match first, then the lead's most recently sent email as a fallback.
func (p *ReplyProcessor) resolveSend(ctx context.Context, leadID uuid.UUID, inReplyTo string) (*outreach.EmailSend, error) {
	if inReplyTo != "" {
		send, err := p.store.GetEmailSendByMessageID(ctx, inReplyTo)
		if err != nil {
			return nil, err
		}
		if send != nil {
			return send, nil
		}
	}
	return p.store.GetLatestSentEmailSend(ctx, leadID)
}

// autoReplyDelay draws a uniform delay from the configured window.
func (p *ReplyProcessor) autoReplyDelay() time.Duration {
	min := p.autoReply.MinDelaySeconds
	max := p.autoReply.MaxDelaySeconds
	if max <= min {
		return time.Duration(min) * time.Second
	}
	return time.Duration(min+p.rng.Intn(max-min+1)) * time.Second
}

func hasUnsubscribeIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range unsubscribeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
