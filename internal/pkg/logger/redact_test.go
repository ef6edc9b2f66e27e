package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"normal address", "john.doe@example.com", "jo***@example.com"},
		{"short local part", "jo@example.com", "***@example.com"},
		{"single char local", "j@example.com", "***@example.com"},
		{"no at sign", "not-an-email", "***@***"},
		{"two at signs", "a@b@c.com", "***@***"},
		{"empty", "", "***@***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactEmail(tt.email); got != tt.want {
				t.Errorf("RedactEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}
