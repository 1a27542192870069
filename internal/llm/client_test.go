package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"contextos/internal/config"
	"contextos/internal/types"
)

type scriptedClient struct {
	calls   int
	failFor int
	answer  string
}

func (s *scriptedClient) Model() string { return "scripted" }

func (s *scriptedClient) ChatCompletion(ctx context.Context, _ []types.Message) (string, error) {
	s.calls++
	if s.calls <= s.failFor {
		return "", errors.New("transient")
	}
	return s.answer, nil
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedClient{failFor: 2, answer: "ok"}
	c := &retryClient{inner: inner, timeout: time.Second, attempts: 3}

	got, err := c.ChatCompletion(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected recovery: %v", err)
	}
	if got != "ok" {
		t.Errorf("answer = %q", got)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryExhaustsAndWrapsLastError(t *testing.T) {
	inner := &scriptedClient{failFor: 10}
	c := &retryClient{inner: inner, timeout: time.Second, attempts: 3}

	_, err := c.ChatCompletion(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	inner := &scriptedClient{failFor: 10}
	c := &retryClient{inner: inner, timeout: time.Second, attempts: 5}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ChatCompletion(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(config.EngineConfig{Provider: "telepathy"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestNewBuildsConfiguredProviders(t *testing.T) {
	for _, provider := range []string{"openai", "gemini"} {
		c, err := New(config.EngineConfig{Provider: provider, Model: "m", APIKey: "k"})
		if err != nil {
			t.Fatalf("New(%s) failed: %v", provider, err)
		}
		if c.Model() != "m" {
			t.Errorf("Model() = %q", c.Model())
		}
	}
}

func TestGeminiClientInitOnceUnderConcurrency(t *testing.T) {
	c := newGeminiClient(config.EngineConfig{Provider: "gemini", Model: "m", APIKey: "k"})

	const callers = 8
	clients := make([]*genai.Client, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = c.ensureClient(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("ensureClient[%d] failed: %v", i, errs[i])
		}
		if clients[i] != clients[0] {
			t.Fatalf("ensureClient[%d] returned a different client instance", i)
		}
	}
}

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		ok   bool
		mime string
	}{
		{"png data uri", "data:image/png;base64,aGVsbG8=", true, "image/png"},
		{"plain url", "https://example.com/x.png", false, ""},
		{"missing base64 marker", "data:image/png,raw", false, ""},
		{"bad base64", "data:image/png;base64,!!!", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, data, ok := decodeDataURI(tt.uri)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && mime != tt.mime {
				t.Errorf("mime = %q", mime)
			}
			if ok && string(data) != "hello" {
				t.Errorf("data = %q", data)
			}
		})
	}
}
