// Package content produces the text that goes out on the wire: personalized
// sequence emails, reply classification, and drafted responses. The Bedrock
// generator is the production path; the Liquid template generator is the
// deterministic fallback when no model is configured.
package content

import (
	"context"

	"github.com/ignite/outreach-engine/internal/outreach"
)

// Message is a generated subject/body pair ready for the transport.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendInput carries everything needed to personalize one sequence email.
// PriorSubjects are the subject lines already sent to this lead in this
// campaign, passed as anti-repetition context.
type SendInput struct {
	Lead          *outreach.Lead
	Campaign      *outreach.Campaign
	Step          int
	PriorSubjects []string
}

// ReplyInput carries the context for drafting a response to an inbound reply.
type ReplyInput struct {
	OriginalBody string
	ReplyText    string
	Category     string
	Lead         *outreach.Lead
}

// Generator is the content engine consumed by the dispatcher and the reply
// processor. Implementations must only return labels from the closed
// category set on Classify; anything else collapses to unknown.
type Generator interface {
	GenerateSend(ctx context.Context, input SendInput) (*Message, error)
	Classify(ctx context.Context, text string) (string, error)
	DraftReply(ctx context.Context, input ReplyInput) (string, error)
}
