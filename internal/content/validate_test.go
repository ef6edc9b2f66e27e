package content

import (
	"strings"
	"testing"
)

func TestValidateBody(t *testing.T) {
	longEnough := strings.Repeat("Real content about the business. ", 10)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid body", longEnough, false},
		{"banned phrase", "I hope this email finds you well. " + longEnough, true},
		{"banned phrase mid-body", longEnough + " We should circle back next week.", true},
		{"banned phrase different case", "Let's LEVERAGE this. " + longEnough, true},
		{"unresolved placeholder", longEnough + " {{ first_name }}", true},
		{"stray closing token", longEnough + " }}", true},
		{"too short", "Hi there, quick note.", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBody(tt.body)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBody() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnsubscribeURLEscapesAddress(t *testing.T) {
	got := unsubscribeURL("https://example.com/unsubscribe", "First+Last@Example.com")
	want := "https://example.com/unsubscribe?email=first%2Blast%40example.com"
	if got != want {
		t.Errorf("unsubscribeURL() = %q, want %q", got, want)
	}
}
