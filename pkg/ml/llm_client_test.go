package ml

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/decoynet/hivetrap/pkg/config"
)

func llmTestConfig(baseURL string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LLMProvider = config.ProviderCustom
	cfg.LLMBaseURL = baseURL
	cfg.LLMModel = "test-model"
	cfg.LLMTimeout = 2 * time.Second
	return cfg
}

func completionHandler(t *testing.T, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string        `json:"model"`
			Messages []ChatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) == 0 || req.Messages[0].Role != "system" {
			t.Error("system message missing or not first")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}
}

func TestLLMClient_Complete(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "  understood  "))
	defer srv.Close()

	c := NewLLMClient(llmTestConfig(srv.URL))
	if !c.Ready() {
		t.Fatal("client with base URL should be ready")
	}

	got, err := c.Complete(context.Background(), "be terse", []ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "understood" {
		t.Errorf("reply = %q, want trimmed %q", got, "understood")
	}
}

func TestLLMClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewLLMClient(llmTestConfig(srv.URL))
	_, err := c.Complete(context.Background(), "", []ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable on 429, got %v", err)
	}
}

func TestLLMClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := llmTestConfig(srv.URL)
	cfg.LLMTimeout = 50 * time.Millisecond
	c := NewLLMClient(cfg)

	_, err := c.Complete(context.Background(), "", []ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestLLMClient_NotConfigured(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.LLMProvider = config.ProviderNone
	cfg.LLMBaseURL = ""
	cfg.LLMAPIKey = ""
	c := NewLLMClient(cfg)

	if c.Ready() {
		t.Error("unconfigured client reports ready")
	}
	_, err := c.Complete(context.Background(), "", []ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestLLMClient_GroqNeedsKey(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.LLMProvider = config.ProviderGroq
	cfg.LLMBaseURL = ""
	cfg.LLMAPIKey = ""
	if NewLLMClient(cfg).Ready() {
		t.Error("groq without API key reports ready")
	}

	cfg.LLMAPIKey = "gsk_test"
	if !NewLLMClient(cfg).Ready() {
		t.Error("groq with API key not ready")
	}
}

func TestLLMClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewLLMClient(llmTestConfig(srv.URL))
	_, err := c.Complete(context.Background(), "", []ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable on empty choices, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure, here it is: {"a":1} hope that helps`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
