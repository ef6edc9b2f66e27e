package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/outreach"
)

// stepGuidance steers the model's tone for each touch in the cadence.
var stepGuidance = map[int]string{
	1: "First contact. Lead with curiosity and value. Soft CTA — just spark interest, no pressure.",
	2: "Second touch. Briefly reference first email. Add a new angle or insight. Slightly more direct.",
	3: "Third touch. Acknowledge they're busy. Share a quick result or one-liner case study. Ask one specific question.",
	4: "Fourth touch. Direct meeting request. Light urgency. Make it easy to say yes.",
	5: "Final email. Honest breakup tone — tell them you won't keep emailing. Very direct Calendly link.",
}

// replyGuidance steers drafted responses per actionable category.
func replyGuidance(category, calendlyLink string) string {
	switch category {
	case outreach.CategoryInterested:
		return fmt.Sprintf("They're interested — great! Be warm but not over-eager. "+
			"Suggest specific times or share the Calendly link: %s", calendlyLink)
	case outreach.CategoryQuestion:
		return "Answer their question clearly and concisely. " +
			"Then naturally guide toward a short call to discuss further."
	case outreach.CategoryObjection:
		return "Acknowledge their concern genuinely — don't dismiss it. " +
			"Briefly reframe the value. Make the next step feel very low commitment."
	default:
		return "Respond naturally and helpfully."
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// unsubscribeURL builds the per-lead opt-out link for the mandatory footer.
func unsubscribeURL(base, email string) string {
	return base + "?email=" + url.QueryEscape(outreach.NormalizeEmail(email))
}

// unsubscribeFooter is the exact HTML block appended to every outbound
// sequence email.
func unsubscribeFooter(sender config.SenderConfig, leadEmail string) string {
	return fmt.Sprintf(`<p style="font-size:11px;color:#aaa;margin-top:20px;">%s · %s<br><a href="%s" style="color:#aaa;">Unsubscribe</a></p>`,
		sender.CompanyName, sender.CompanyAddress, unsubscribeURL(sender.UnsubscribeBaseURL, leadEmail))
}

// buildSendPrompt assembles the full generation prompt for one sequence email.
func buildSendPrompt(input SendInput, sender config.SenderConfig) string {
	lead := input.Lead
	campaign := input.Campaign

	prevContext := ""
	if len(input.PriorSubjects) > 0 {
		prevContext = fmt.Sprintf("\nPrevious subject lines already sent to this person: %s"+
			"\nDo NOT repeat the same angle or hook.", strings.Join(input.PriorSubjects, ", "))
	}

	return fmt.Sprintf(`You write cold outreach emails for a digital agency that builds AI automation systems.

Write ONE email now for this recipient:

RECIPIENT INFO:
- First name: %s
- Business name: %s
- Industry: %s
- Location: %s
- Website: %s
- Extra notes: %s
- Found via: %s

CAMPAIGN: %s
EMAIL STEP: %d of %d
GUIDANCE FOR THIS STEP: %s
%s

BASE TEMPLATE (rewrite completely in your own words — do not copy):
%s

STRICT RULES:
1. Never start with "I hope this email finds you well" or any variant
2. Never use: synergy, leverage, circle back, touch base, just following up
3. Sound like a real human, not a bot or a marketer
4. Reference something SPECIFIC about their business or industry
5. Maximum ONE call to action
6. Body must be 100 to 160 words
7. Sign off with only: %s
8. Include this EXACT unsubscribe footer at the very bottom (do not change it):
   %s

Calendly booking link (use in steps 4 and 5 only): %s

RESPOND with ONLY a valid JSON object in this exact format — no explanation, no markdown:
{"subject": "subject line here", "body": "complete HTML body here"}`,
		orDefault(lead.FirstName, "there"),
		orDefault(lead.BusinessName, "their business"),
		orDefault(lead.Industry, "not specified"),
		orDefault(lead.Location, "not specified"),
		orDefault(lead.Website, "none"),
		orDefault(lead.Specifications, "none"),
		orDefault(lead.SourcePlatform, "online research"),
		orDefault(campaign.Name, "Outreach Campaign"),
		input.Step, outreach.SequenceSteps,
		stepGuidance[input.Step],
		prevContext,
		campaign.BodyTemplate,
		sender.Name,
		unsubscribeFooter(sender, lead.Email),
		sender.CalendlyLink)
}

// buildClassifyPrompt assembles the classification prompt. The reply text is
// truncated so a rambling reply doesn't blow the context window.
func buildClassifyPrompt(text string) string {
	text = outreach.Truncate(text, 600)
	return fmt.Sprintf(`Classify this email reply into exactly ONE of these categories:

interested    → positive, wants to learn more, open to a call
question      → asking about pricing, process, how it works, timeline
objection     → engaging but pushing back (too busy, too expensive, not now)
out_of_office → automated vacation or OOO auto-reply
unsubscribe   → asking to stop emails, remove them, not interested
negative      → rude, hostile, aggressive
unknown       → cannot determine

Email reply to classify:
---
%s
---

Respond with ONLY the single category word. Nothing else.`, text)
}

// buildDraftPrompt assembles the reply-drafting prompt.
func buildDraftPrompt(input ReplyInput, sender config.SenderConfig) string {
	replyText := outreach.Truncate(input.ReplyText, 800)
	originalBody := outreach.Truncate(input.OriginalBody, 400)

	return fmt.Sprintf(`You are writing a reply email on behalf of %s at %s.

A potential client has replied to your outreach email.

LEAD: %s at %s
THEIR REPLY: %s
REPLY TYPE: %s
YOUR GOAL: %s

THE EMAIL YOU SENT THEM:
%s

Write a reply that:
- Is 50 to 90 words maximum
- Sounds like a real person wrote it quickly, not a template
- Does NOT start with "Great!" or "Thanks for reaching out!" or "I appreciate your reply"
- Feels personal and direct
- Signs off naturally as: %s
- No subject line — just the body text

Write ONLY the reply body. Nothing else.`,
		sender.Name, sender.CompanyName,
		orDefault(input.Lead.FirstName, "there"),
		orDefault(input.Lead.BusinessName, "their company"),
		replyText,
		input.Category,
		replyGuidance(input.Category, sender.CalendlyLink),
		originalBody,
		sender.Name)
}
