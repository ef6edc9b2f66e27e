package content

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/outreach-engine/internal/outreach"
)

// fakeInvoker returns canned model output and records the prompt it saw.
type fakeInvoker struct {
	response string
	err      error
	prompt   string
	modelID  string
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput,
	optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if params.ModelId != nil {
		f.modelID = *params.ModelId
	}

	var req bedrockRequest
	if err := json.Unmarshal(params.Body, &req); err == nil && len(req.Messages) > 0 {
		f.prompt = req.Messages[0].Content[0].Text
	}

	body, _ := json.Marshal(bedrockResponse{
		Content: []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{{Type: "text", Text: f.response}},
	})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func newTestBedrockGenerator(invoker *fakeInvoker) *BedrockGenerator {
	return &BedrockGenerator{
		client:            invoker,
		modelID:           "writer-model",
		classifierModelID: "classifier-model",
		sender:            testSender(),
	}
}

func validModelEmail() string {
	body := "<p>" + strings.Repeat("Something specific about plumbing in Austin. ", 5) + "</p>"
	payload, _ := json.Marshal(Message{Subject: "Quick one", Body: body})
	return string(payload)
}

func TestBedrockGenerateSend(t *testing.T) {
	invoker := &fakeInvoker{response: "```json\n" + validModelEmail() + "\n```"}
	gen := newTestBedrockGenerator(invoker)

	msg, err := gen.GenerateSend(context.Background(), SendInput{
		Lead:          testLead(),
		Campaign:      &outreach.Campaign{Name: "Spring", BodyTemplate: "template"},
		Step:          3,
		PriorSubjects: []string{"First subject", "Second subject"},
	})
	if err != nil {
		t.Fatalf("GenerateSend() error: %v", err)
	}
	if msg.Subject != "Quick one" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if invoker.modelID != "writer-model" {
		t.Errorf("used model %q, want writer-model", invoker.modelID)
	}
	// Anti-repetition context must make it into the prompt.
	if !strings.Contains(invoker.prompt, "First subject") {
		t.Error("prompt missing prior subjects")
	}
}

func TestBedrockGenerateSendRejectsBannedPhrase(t *testing.T) {
	body := "<p>I hope this email finds you well. " + strings.Repeat("Filler text here. ", 12) + "</p>"
	payload, _ := json.Marshal(Message{Subject: "Hi", Body: body})
	gen := newTestBedrockGenerator(&fakeInvoker{response: string(payload)})

	_, err := gen.GenerateSend(context.Background(), SendInput{
		Lead:     testLead(),
		Campaign: &outreach.Campaign{},
		Step:     1,
	})
	if err == nil {
		t.Error("GenerateSend() should reject banned phrases")
	}
}

func TestBedrockGenerateSendRejectsMalformedJSON(t *testing.T) {
	gen := newTestBedrockGenerator(&fakeInvoker{response: "this is not json"})

	_, err := gen.GenerateSend(context.Background(), SendInput{
		Lead:     testLead(),
		Campaign: &outreach.Campaign{},
		Step:     1,
	})
	if err == nil {
		t.Error("GenerateSend() should reject malformed JSON")
	}
}

func TestBedrockClassify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"clean label", "interested", outreach.CategoryInterested},
		{"label with whitespace", "  question\n", outreach.CategoryQuestion},
		{"uppercase label", "OBJECTION", outreach.CategoryObjection},
		{"off-taxonomy output", "very positive reply!", outreach.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{response: tt.response}
			gen := newTestBedrockGenerator(invoker)

			got, err := gen.Classify(context.Background(), "some reply text")
			if err != nil {
				t.Fatalf("Classify() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
			if invoker.modelID != "classifier-model" {
				t.Errorf("used model %q, want classifier-model", invoker.modelID)
			}
		})
	}
}

func TestBedrockDraftReply(t *testing.T) {
	gen := newTestBedrockGenerator(&fakeInvoker{response: "  Happy to walk you through it.\n"})

	draft, err := gen.DraftReply(context.Background(), ReplyInput{
		ReplyText: "How does it work?",
		Category:  outreach.CategoryQuestion,
		Lead:      testLead(),
	})
	if err != nil {
		t.Fatalf("DraftReply() error: %v", err)
	}
	if draft != "Happy to walk you through it." {
		t.Errorf("draft = %q", draft)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
