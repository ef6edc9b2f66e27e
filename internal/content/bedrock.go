package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/outreach"
)

// bedrockInvoker is the one Bedrock call we make, extracted so tests can
// substitute a canned model.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// bedrockRequest is the Anthropic messages payload for InvokeModel.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// BedrockGenerator produces email content, classifications, and reply drafts
// through Claude on AWS Bedrock. A heavier model writes emails and drafts;
// a cheaper one handles classification.
type BedrockGenerator struct {
	client            bedrockInvoker
	modelID           string
	classifierModelID string
	sender            config.SenderConfig
}

// NewBedrockGenerator creates a Bedrock-backed content generator.
func NewBedrockGenerator(ctx context.Context, bedrockCfg config.BedrockConfig, sender config.SenderConfig) (*BedrockGenerator, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	g := &BedrockGenerator{
		client:            bedrockruntime.NewFromConfig(awsCfg),
		modelID:           bedrockCfg.ModelID,
		classifierModelID: bedrockCfg.ClassifierModelID,
		sender:            sender,
	}
	log.Printf("[Content] Bedrock generator initialized (model=%s, classifier=%s, region=%s)",
		g.modelID, g.classifierModelID, bedrockCfg.Region)
	return g, nil
}

// GenerateSend produces a personalized subject/body for one sequence email
// and validates the output before accepting it.
func (g *BedrockGenerator) GenerateSend(ctx context.Context, input SendInput) (*Message, error) {
	raw, err := g.invoke(ctx, g.modelID, buildSendPrompt(input, g.sender), 2000, 0.7)
	if err != nil {
		return nil, err
	}

	raw = stripCodeFences(raw)

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("model returned malformed JSON: %w", err)
	}
	if msg.Subject == "" {
		return nil, fmt.Errorf("model returned empty subject")
	}
	if err := ValidateBody(msg.Body); err != nil {
		return nil, fmt.Errorf("lead %s step %d: %w", input.Lead.ID, input.Step, err)
	}
	return &msg, nil
}

// Classify labels an inbound reply with one of the seven fixed categories.
// Any off-taxonomy model output collapses to unknown.
func (g *BedrockGenerator) Classify(ctx context.Context, text string) (string, error) {
	raw, err := g.invoke(ctx, g.classifierModelID, buildClassifyPrompt(text), 20, 0)
	if err != nil {
		return "", err
	}

	label := strings.ToLower(strings.TrimSpace(raw))
	if !outreach.IsValidCategory(label) {
		return outreach.CategoryUnknown, nil
	}
	return label, nil
}

// DraftReply produces a short human-sounding response to an actionable reply.
func (g *BedrockGenerator) DraftReply(ctx context.Context, input ReplyInput) (string, error) {
	raw, err := g.invoke(ctx, g.modelID, buildDraftPrompt(input, g.sender), 500, 0.7)
	if err != nil {
		return "", err
	}
	draft := strings.TrimSpace(raw)
	if draft == "" {
		return "", fmt.Errorf("model returned empty draft")
	}
	return draft, nil
}

func (g *BedrockGenerator) invoke(ctx context.Context, modelID, prompt string, maxTokens int, temperature float64) (string, error) {
	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: prompt}}},
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return response.Content[0].Text, nil
}

// stripCodeFences removes markdown fencing the model sometimes wraps around
// JSON output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
