package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/outreach"
)

// TemplateGenerator renders campaign templates with Liquid instead of a
// model. It is the fallback content path when Bedrock is not configured:
// deterministic, offline, and cheap. Model-output validation does not apply
// here — rendering either succeeds or errors, there is no hallucination to
// guard against.
type TemplateGenerator struct {
	engine *liquid.Engine
	sender config.SenderConfig
}

// NewTemplateGenerator creates a Liquid-backed content generator.
func NewTemplateGenerator(sender config.SenderConfig) *TemplateGenerator {
	engine := liquid.NewEngine()

	// Placeholder fallback: {{ first_name | default: "there" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &TemplateGenerator{engine: engine, sender: sender}
}

// GenerateSend renders the campaign's subject and body templates against the
// lead's fields and appends the mandatory unsubscribe footer.
func (g *TemplateGenerator) GenerateSend(ctx context.Context, input SendInput) (*Message, error) {
	bindings := g.bindings(input.Lead)
	bindings["campaign_name"] = input.Campaign.Name
	bindings["sequence_step"] = input.Step

	subjectTemplate := input.Campaign.SubjectTemplate
	if strings.TrimSpace(subjectTemplate) == "" {
		subjectTemplate = "Quick question for {{ business_name | default: \"you\" }}"
	}

	subject, err := g.render(subjectTemplate, bindings)
	if err != nil {
		return nil, fmt.Errorf("render subject template: %w", err)
	}
	body, err := g.render(input.Campaign.BodyTemplate, bindings)
	if err != nil {
		return nil, fmt.Errorf("render body template: %w", err)
	}

	body += "\n" + unsubscribeFooter(g.sender, input.Lead.Email)
	return &Message{Subject: subject, Body: body}, nil
}

// Classify labels a reply by keyword heuristics. Coarse, but it keeps the
// pipeline functional without a model.
func (g *TemplateGenerator) Classify(ctx context.Context, text string) (string, error) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "unsubscribe", "remove me", "opt out", "stop emailing"):
		return outreach.CategoryUnsubscribe, nil
	case containsAny(lower, "out of office", "on vacation", "auto-reply", "automatic reply", "away from my desk"):
		return outreach.CategoryOutOfOffice, nil
	case containsAny(lower, "how much", "pricing", "price", "how does", "what do you", "timeline", "?"):
		return outreach.CategoryQuestion, nil
	case containsAny(lower, "interested", "tell me more", "sounds good", "let's talk", "book a call"):
		return outreach.CategoryInterested, nil
	case containsAny(lower, "too expensive", "too busy", "not right now", "maybe later", "already have"):
		return outreach.CategoryObjection, nil
	case containsAny(lower, "spam", "stop", "never contact", "leave me alone"):
		return outreach.CategoryNegative, nil
	default:
		return outreach.CategoryUnknown, nil
	}
}

// DraftReply renders a short canned response per category.
func (g *TemplateGenerator) DraftReply(ctx context.Context, input ReplyInput) (string, error) {
	name := input.Lead.FirstName
	if name == "" {
		name = "there"
	}

	var body string
	switch input.Category {
	case outreach.CategoryInterested:
		body = fmt.Sprintf("Hi %s, glad this resonated. Happy to walk you through what this would look like for %s — grab any time that works here: %s\n\n%s",
			name, orDefault(input.Lead.BusinessName, "your business"), g.sender.CalendlyLink, g.sender.Name)
	case outreach.CategoryQuestion:
		body = fmt.Sprintf("Hi %s, good question — easiest to answer properly on a quick call. Here's my calendar if you want to pick a slot: %s\n\n%s",
			name, g.sender.CalendlyLink, g.sender.Name)
	case outreach.CategoryObjection:
		body = fmt.Sprintf("Hi %s, totally fair. No pressure at all — if it's ever worth a second look, a 15-minute call is all it takes: %s\n\n%s",
			name, g.sender.CalendlyLink, g.sender.Name)
	default:
		return "", fmt.Errorf("no draft template for category %q", input.Category)
	}
	return body, nil
}

func (g *TemplateGenerator) bindings(lead *outreach.Lead) map[string]interface{} {
	return map[string]interface{}{
		"first_name":    lead.FirstName,
		"last_name":     lead.LastName,
		"business_name": lead.BusinessName,
		"industry":      lead.Industry,
		"location":      lead.Location,
		"website":       lead.Website,
		"email":         lead.Email,
		"company_name":  g.sender.CompanyName,
		"sender_name":   g.sender.Name,
		"calendly_link": g.sender.CalendlyLink,
	}
}

func (g *TemplateGenerator) render(template string, bindings map[string]interface{}) (string, error) {
	out, err := g.engine.ParseAndRenderString(template, bindings)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
