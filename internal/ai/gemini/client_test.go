package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu      sync.Mutex
	calls   []fakeCall
	replies []fakeReply
}

type fakeCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

type fakeReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt, config: config})

	if len(f.replies) == 0 {
		return nil, errors.New("unexpected call")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.resp, reply.err
}

func (f *fakeModels) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestGeneratorInvokeJoinsParts(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(" [\"Go\", ", "", "\"SQL\"] "), nil)

	g := newGenerator(models, DefaultOptions(), zap.NewNop())

	output, err := g.Invoke(context.Background(), "  extract keywords  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "[\"Go\",\n\"SQL\"]" {
		t.Fatalf("unexpected output: %q", output)
	}

	call := models.calls[0]
	if call.model != defaultModel {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.prompt != "extract keywords" {
		t.Fatalf("unexpected prompt: %q", call.prompt)
	}
	if call.config == nil || call.config.Temperature == nil || *call.config.Temperature != 0.3 {
		t.Fatalf("expected temperature to be set: %+v", call.config)
	}
	if call.config.TopK == nil || *call.config.TopK != 40 {
		t.Fatalf("expected top k to be set: %+v", call.config)
	}
	if call.config.MaxOutputTokens != 4096 {
		t.Fatalf("unexpected max output tokens: %d", call.config.MaxOutputTokens)
	}
}

func TestGeneratorLeavesUnsetSamplingToAPI(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("ok"), nil)

	g := newGenerator(models, Options{Model: " gemini-pro "}, nil)
	if _, err := g.Invoke(context.Background(), "prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	call := models.calls[0]
	if call.model != "gemini-pro" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.config.Temperature != nil || call.config.TopP != nil || call.config.TopK != nil {
		t.Fatalf("expected sampling to stay unset: %+v", call.config)
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("   "), nil)
	models.enqueue(&genai.GenerateContentResponse{}, nil)

	g := newGenerator(models, Options{}, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := g.Invoke(context.Background(), "prompt"); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("expected empty response error, got %v", err)
		}
	}
}

func TestGeneratorRejectsBlankPrompt(t *testing.T) {
	models := &fakeModels{}
	g := newGenerator(models, Options{}, zap.NewNop())

	if _, err := g.Invoke(context.Background(), " \n "); err == nil {
		t.Fatal("expected error for blank prompt")
	}
	if models.callCount() != 0 {
		t.Fatalf("expected no api calls, got %d", models.callCount())
	}
}

func TestGeneratorBreakerOpensAfterFailures(t *testing.T) {
	models := &fakeModels{}
	apiErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, apiErr)
	models.enqueue(nil, apiErr)

	opts := Options{Breaker: DefaultBreakerOptions()}
	opts.Breaker.MinRequests = 2
	opts.Breaker.FailureThreshold = 0.5

	g := newGenerator(models, opts, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := g.Invoke(context.Background(), "prompt"); err == nil {
			t.Fatalf("expected api error on call %d", i)
		}
	}

	_, err := g.Invoke(context.Background(), "prompt")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if models.callCount() != 2 {
		t.Fatalf("expected the open breaker to skip the api, got %d calls", models.callCount())
	}
}

func TestGeneratorBreakerDisabled(t *testing.T) {
	models := &fakeModels{}
	for i := 0; i < 5; i++ {
		models.enqueue(nil, errors.New("boom"))
	}

	g := newGenerator(models, Options{}, zap.NewNop())
	for i := 0; i < 5; i++ {
		_, _ = g.Invoke(context.Background(), "prompt")
	}

	if models.callCount() != 5 {
		t.Fatalf("expected every call to reach the api, got %d", models.callCount())
	}
}

func TestGeneratorRateLimiterHonoursContext(t *testing.T) {
	models := &fakeModels{}
	g := newGenerator(models, Options{RequestsPerSecond: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Invoke(ctx, "prompt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if models.callCount() != 0 {
		t.Fatalf("expected no api calls, got %d", models.callCount())
	}
}
