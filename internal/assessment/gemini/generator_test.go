package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu        sync.Mutex
	calls     []modelCall
	responses []fakeModelResponse
}

type modelCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeModelResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeModelResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, modelCall{model: model, contents: contents, config: config})
	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var waits []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	return &waits
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	waits := stubWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"})
	models.enqueue(textResponse("retry ok"), nil)

	g := newGenerator(models, "gemini-pro", 3, zap.NewNop())

	output, err := g.Generate(context.Background(), genai.NewPartFromText("prompt"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(models.calls))
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; len(*waits) != 2 || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Fatalf("unexpected backoff: %v", *waits)
	}

	for _, call := range models.calls {
		if call.model != "gemini-pro" {
			t.Fatalf("unexpected model %q", call.model)
		}
		if call.config == nil || call.config.ResponseMIMEType != "application/json" {
			t.Fatalf("expected json response mime type, got %+v", call.config)
		}
		if len(call.contents) != 1 || call.contents[0].Role != genai.RoleUser {
			t.Fatalf("unexpected contents: %+v", call.contents)
		}
		if got := call.contents[0].Parts[0].Text; got != "prompt" {
			t.Fatalf("unexpected prompt: %q", got)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := newGenerator(models, "gemini-pro", 2, zap.NewNop())

	_, err := g.Generate(context.Background(), genai.NewPartFromText("prompt"))
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
		{name: "long quota delay", err: genai.APIError{
			Code:    http.StatusTooManyRequests,
			Status:  "RESOURCE_EXHAUSTED",
			Message: "quota exhausted, retry after 60 seconds",
		}},
		{name: "not an api error", err: errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waits := stubWait(t)

			models := &fakeModels{}
			models.enqueue(nil, tt.err)

			g := newGenerator(models, "", 3, nil)
			if _, err := g.Generate(context.Background(), genai.NewPartFromText("p")); err == nil {
				t.Fatal("expected error")
			}
			if len(models.calls) != 1 {
				t.Fatalf("expected single call, got %d", len(models.calls))
			}
			if len(*waits) != 0 {
				t.Fatalf("expected no waits, got %v", *waits)
			}
			if models.calls[0].model != defaultModel {
				t.Fatalf("expected default model, got %q", models.calls[0].model)
			}
		})
	}
}

func TestGeneratorHonoursQuotaDelay(t *testing.T) {
	waits := stubWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 4.5s."})
	models.enqueue(textResponse("ok"), nil)

	g := newGenerator(models, "m", 2, nil)
	if _, err := g.Generate(context.Background(), genai.NewPartFromText("p")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 4500*time.Millisecond {
		t.Fatalf("unexpected waits: %v", *waits)
	}
}

func TestGeneratorStopsWhenContextDone(t *testing.T) {
	original := wait
	wait = func(ctx context.Context, _ time.Duration) error { return context.Canceled }
	t.Cleanup(func() { wait = original })

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError})
	models.enqueue(textResponse("never"), nil)

	g := newGenerator(models, "m", 3, nil)
	_, err := g.Generate(context.Background(), genai.NewPartFromText("p"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}, nil)

	g := newGenerator(models, "m", 1, nil)
	if _, err := g.Generate(context.Background(), genai.NewPartFromText("p")); err == nil {
		t.Fatal("expected error for empty response")
	}

	if _, err := g.Generate(context.Background()); err == nil {
		t.Fatal("expected error without parts")
	}
}
