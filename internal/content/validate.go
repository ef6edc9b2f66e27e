package content

import (
	"fmt"
	"strings"
)

// BannedPhrases are cold-email clichés that model output must never contain.
// Matched case-insensitively as substrings.
var BannedPhrases = []string{
	"i hope this email finds you well",
	"i hope this finds you well",
	"just following up",
	"touching base",
	"circle back",
	"synergy",
	"leverage",
	"per my last email",
	"as per",
	"don't hesitate to reach out",
	"reach out to me",
}

// MinBodyLength is the minimum accepted model-generated body, in bytes.
// Anything shorter is malformed output, not a real email.
const MinBodyLength = 150

// ValidateBody rejects bad model output before it can be sent: banned
// phrases, unresolved template tokens, or an implausibly short body.
func ValidateBody(body string) error {
	lower := strings.ToLower(body)
	for _, phrase := range BannedPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("generated body contains banned phrase %q", phrase)
		}
	}
	if strings.Contains(body, "{{") || strings.Contains(body, "}}") {
		return fmt.Errorf("generated body contains unresolved template tokens")
	}
	if len(body) < MinBodyLength {
		return fmt.Errorf("generated body too short (%d bytes, minimum %d)", len(body), MinBodyLength)
	}
	return nil
}
