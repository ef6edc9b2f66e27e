// Package mailer abstracts the outbound email transport. The dispatcher and
// reply sender only see the Transport interface; the SES implementation
// lives behind it, and tests substitute fakes.
package mailer

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind distinguishes transport failures that callers handle differently.
type ErrorKind int

const (
	// KindTransport is any generic transport failure.
	KindTransport ErrorKind = iota
	// KindRecipientRejected means the provider refused this recipient.
	KindRecipientRejected
	// KindAuthFailed means the transport credentials are bad. This is a
	// fleet-wide configuration problem, but still surfaces per-record.
	KindAuthFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindRecipientRejected:
		return "recipient_rejected"
	case KindAuthFailed:
		return "auth_failed"
	default:
		return "transport_error"
	}
}

// Error wraps a transport failure with its kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind, defaulting to KindTransport for errors
// that did not originate in a transport.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransport
}

// Identity is the outbound sender identity.
type Identity struct {
	Name  string
	Email string
}

// SendRequest is one outbound sequence email.
type SendRequest struct {
	ToAddress string
	ToName    string
	Subject   string
	HTMLBody  string
	Sender    Identity
	ReplyTo   string
}

// SendResult carries the transport message-id used for reply threading.
type SendResult struct {
	MessageID string
}

// ReplyRequest is one outbound threaded response to an inbound reply.
type ReplyRequest struct {
	ToAddress          string
	ToName             string
	Body               string
	Sender             Identity
	InReplyToMessageID string
}

// Transport sends email. Both calls may block on network latency and honor
// context cancellation.
type Transport interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	SendReply(ctx context.Context, req ReplyRequest) error
}
