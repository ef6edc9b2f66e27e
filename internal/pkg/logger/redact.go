// Package logger holds logging helpers shared by the API and the workers.
// Lead addresses are personal data: every log line that mentions one goes
// through RedactEmail first.
package logger

import "strings"

// RedactEmail masks a lead address for log output, keeping just enough of
// the local part to correlate log lines: "john.doe@example.com" becomes
// "jo***@example.com". Local parts of two characters or fewer are masked
// entirely, and anything that is not a plain user@domain address collapses
// to "***@***".
func RedactEmail(address string) string {
	local, domain, ok := strings.Cut(address, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}
