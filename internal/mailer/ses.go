package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// sesAPI is the slice of the SES v2 client we use, extracted for tests.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends email through AWS SES v2.
type SESTransport struct {
	client sesAPI
	region string
}

// NewSESTransport creates an SES transport. Static credentials take
// precedence; otherwise the default AWS credential chain applies.
func NewSESTransport(ctx context.Context, accessKey, secretKey, region string) (*SESTransport, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SESTransport{client: sesv2.NewFromConfig(cfg), region: region}, nil
}

// Send delivers one sequence email and returns the SES message-id.
func (t *SESTransport) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", req.Sender.Name, req.Sender.Email)),
		Destination:      &types.Destination{ToAddresses: []string{req.ToAddress}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(req.HTMLBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if req.ReplyTo != "" {
		input.ReplyToAddresses = []string{req.ReplyTo}
	}

	result, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return nil, classifySESError(err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}

	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(req.ToAddress), messageID)
	return &SendResult{MessageID: messageID}, nil
}

// SendReply delivers a threaded response. In-Reply-To/References headers tell
// the recipient's client this continues the original thread.
func (t *SESTransport) SendReply(ctx context.Context, req ReplyRequest) error {
	message := &types.Message{
		Subject: &types.Content{Data: aws.String("Re: following up"), Charset: aws.String("UTF-8")},
		Body: &types.Body{
			Html: &types.Content{Data: aws.String(textToHTML(req.Body)), Charset: aws.String("UTF-8")},
		},
	}
	if req.InReplyToMessageID != "" {
		message.Headers = []types.MessageHeader{
			{Name: aws.String("In-Reply-To"), Value: aws.String(req.InReplyToMessageID)},
			{Name: aws.String("References"), Value: aws.String(req.InReplyToMessageID)},
		}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", req.Sender.Name, req.Sender.Email)),
		Destination:      &types.Destination{ToAddresses: []string{req.ToAddress}},
		Content:          &types.EmailContent{Simple: message},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return classifySESError(err)
	}

	log.Printf("[SES] Reply sent to %s", logger.RedactEmail(req.ToAddress))
	return nil
}

// classifySESError maps provider failures onto the transport error kinds.
func classifySESError(err error) error {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return &Error{Kind: KindRecipientRejected, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException",
			"InvalidClientTokenId", "SignatureDoesNotMatch", "InvalidSignatureException":
			return &Error{Kind: KindAuthFailed, Err: err}
		}
	}
	return &Error{Kind: KindTransport, Err: err}
}

// textToHTML converts a plain-text draft into minimal HTML.
func textToHTML(body string) string {
	return "<p>" + strings.ReplaceAll(body, "\n", "<br>") + "</p>"
}
