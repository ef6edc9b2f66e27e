// Package outreach holds the domain model and Postgres store for the
// cold-outreach sequencing engine: leads, campaigns, the per-step
// EmailSend queue, inbound replies, the suppression list, and the
// durable reply-send job table.
package outreach

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SequenceSteps is the fixed number of touches in every campaign cadence.
const SequenceSteps = 5

// Campaign statuses
const (
	CampaignDraft     = "draft"
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

// EmailSend statuses. The pending → terminal transition is one-way and
// happens exactly once, either in the dispatcher or the reply processor.
const (
	SendPending      = "pending"
	SendSent         = "sent"
	SendReplied      = "replied"
	SendBounced      = "bounced"
	SendUnsubscribed = "unsubscribed"
	SendFailed       = "failed"
)

// Reply categories produced by classification.
const (
	CategoryInterested  = "interested"
	CategoryQuestion    = "question"
	CategoryObjection   = "objection"
	CategoryOutOfOffice = "out_of_office"
	CategoryUnsubscribe = "unsubscribe"
	CategoryNegative    = "negative"
	CategoryUnknown     = "unknown"
)

// ReplyCategories is the closed set of classification labels. Anything a
// classifier produces outside this set collapses to CategoryUnknown.
var ReplyCategories = []string{
	CategoryInterested, CategoryQuestion, CategoryObjection,
	CategoryOutOfOffice, CategoryUnsubscribe, CategoryNegative, CategoryUnknown,
}

// ActionableCategories are the reply categories that warrant a drafted response.
var ActionableCategories = map[string]bool{
	CategoryInterested: true,
	CategoryQuestion:   true,
	CategoryObjection:  true,
}

// Reply job statuses
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)

// NormalizeEmail canonicalizes an address for comparison and storage.
// Every email comparison in the system goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Truncate caps s at max bytes without splitting a UTF-8 rune. The cut
// backs up to the nearest rune boundary, so the result is always valid
// UTF-8 and Postgres never rejects it.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// IsValidCategory reports whether label is one of the closed classification set.
func IsValidCategory(label string) bool {
	for _, c := range ReplyCategories {
		if c == label {
			return true
		}
	}
	return false
}

// Lead is a single contact. Immutable after ingestion except for status.
type Lead struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	BusinessName   string
	Industry       string
	Location       string
	Phone          string
	Website        string
	SourcePlatform string
	Specifications string
	BundleID       string
	Status         string
	CreatedAt      time.Time
}

// DisplayName returns the best salutation we have for a lead.
func (l *Lead) DisplayName() string {
	if l.FirstName != "" {
		return l.FirstName
	}
	if l.BusinessName != "" {
		return l.BusinessName
	}
	return ""
}

// Campaign is a named outreach definition. Template and sender fields are
// immutable after creation; only status transitions afterwards.
type Campaign struct {
	ID              uuid.UUID
	Name            string
	SubjectTemplate string
	BodyTemplate    string
	SenderName      string
	SenderEmail     string
	ReplyTo         string
	Status          string
	LeadBundleIDs   []string
	CreatedAt       time.Time
}

// EmailSend is the schedulable unit: one (lead, campaign, step) attempt.
type EmailSend struct {
	ID           uuid.UUID
	CampaignID   uuid.UUID
	LeadID       uuid.UUID
	SequenceStep int
	SenderEmail  string
	Subject      string
	Body         string
	Status       string
	MessageID    string
	ScheduledAt  time.Time
	SentAt       *time.Time
	Notes        string
	CreatedAt    time.Time
}

// Reply is one inbound message from a lead.
//
// Approved/Dismissed/Delivered are independent flags: Approved means a human
// (or auto-reply mode) signed off on the draft, Dismissed means the reply was
// rejected from the queue with no response owed, Delivered means the drafted
// response actually went out over the transport.
type Reply struct {
	ID          uuid.UUID
	EmailSendID uuid.NullUUID
	LeadID      uuid.UUID
	RawContent  string
	Category    string
	Draft       string
	Approved    bool
	Dismissed   bool
	Delivered   bool
	ReceivedAt  time.Time
	RespondedAt *time.Time
}

// Suppression is a permanent do-not-contact marker. Never deleted.
type Suppression struct {
	ID           uuid.UUID
	EmailAddress string
	Reason       string
	CreatedAt    time.Time
}

// ReplyJob is a durable work item for sending one reply at or after RunAfter.
// Both the delayed auto-reply path and synchronous approval go through here.
type ReplyJob struct {
	ID        uuid.UUID
	ReplyID   uuid.UUID
	RunAfter  time.Time
	Status    string
	Attempts  int
	CreatedAt time.Time
}

// ApprovalQueueItem is a reply joined with lead display fields for review.
type ApprovalQueueItem struct {
	ReplyID      uuid.UUID
	LeadEmail    string
	LeadName     string
	BusinessName string
	Category     string
	TheirReply   string
	Draft        string
	ReceivedAt   time.Time
}

// StepStats is the per-step slice of campaign analytics.
type StepStats struct {
	Queued  int `json:"queued"`
	Sent    int `json:"sent"`
	Replied int `json:"replied"`
	Failed  int `json:"failed"`
}

// CampaignAnalytics aggregates send outcomes for one campaign.
type CampaignAnalytics struct {
	CampaignName string            `json:"campaign_name"`
	TotalQueued  int               `json:"total_queued"`
	TotalSent    int               `json:"total_sent"`
	TotalFailed  int               `json:"total_failed"`
	ReplyRate    string            `json:"reply_rate"`
	BounceRate   string            `json:"bounce_rate"`
	ByStep       map[int]StepStats `json:"by_step"`
}
