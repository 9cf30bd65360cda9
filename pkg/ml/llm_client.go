package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/decoynet/hivetrap/pkg/config"
	"github.com/decoynet/hivetrap/pkg/httputil"
)

// Sentinel errors for the external model boundary. Callers never surface
// these to the API - every component degrades to its local fallback.
var (
	ErrUpstreamTimeout     = errors.New("model call timed out")
	ErrUpstreamUnavailable = errors.New("model upstream unavailable")
)

// DefaultTemperature is the temperature for classification calls.
// Persona generation overrides this per call.
const DefaultTemperature = 0.1

// maxInflightCalls caps concurrent upstream model requests across all
// conversations. Calls beyond the cap wait on the context rather than
// stacking onto the provider.
const maxInflightCalls = 32

// LLMClient talks to an OpenAI-compatible chat-completions endpoint
// (Groq, OpenRouter, Ollama, or a custom base URL). A single attempt per
// call, then degrade: retries would stall the conversation cycle.
type LLMClient struct {
	client      *http.Client
	provider    config.LLMProvider
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	inflight    *httputil.Semaphore
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// NewLLMClient creates a client for the configured provider.
// Returns a client with Ready() == false when no provider is configured;
// calls then short-circuit to ErrUpstreamUnavailable.
func NewLLMClient(cfg *config.Config) *LLMClient {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	var baseURL string
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		baseURL = "https://api.groq.com/openai/v1"
	case config.ProviderOpenRouter:
		baseURL = "https://openrouter.ai/api/v1"
	case config.ProviderOllama:
		baseURL = "http://localhost:11434/v1"
	default:
		baseURL = ""
	}
	if cfg.LLMBaseURL != "" {
		baseURL = cfg.LLMBaseURL
	}

	return &LLMClient{
		client:      httputil.ModelClient(cfg.LLMTimeout),
		provider:    cfg.LLMProvider,
		baseURL:     baseURL,
		apiKey:      cfg.LLMAPIKey,
		model:       cfg.LLMModel,
		temperature: DefaultTemperature,
		inflight:    httputil.NewSemaphore(maxInflightCalls),
	}
}

// InflightStats reports current upstream call concurrency for the health
// endpoint.
func (c *LLMClient) InflightStats() httputil.SemaphoreStats {
	return c.inflight.Stats()
}

// Ready reports whether the client can make calls at all.
func (c *LLMClient) Ready() bool {
	if c == nil || c.baseURL == "" {
		return false
	}
	// Ollama and custom endpoints may run without a key.
	if c.provider == config.ProviderGroq || c.provider == config.ProviderOpenRouter {
		return c.apiKey != ""
	}
	return true
}

// Complete sends the system instruction plus conversation messages and
// returns the raw reply text.
func (c *LLMClient) Complete(ctx context.Context, system string, msgs []ChatMessage) (string, error) {
	return c.complete(ctx, system, msgs, c.temperature)
}

// CompleteCreative is Complete with a higher temperature, used by the
// persona engine where deterministic replies would read robotic.
func (c *LLMClient) CompleteCreative(ctx context.Context, system string, msgs []ChatMessage) (string, error) {
	return c.complete(ctx, system, msgs, 0.7)
}

func (c *LLMClient) complete(ctx context.Context, system string, msgs []ChatMessage, temperature float64) (string, error) {
	if !c.Ready() {
		return "", ErrUpstreamUnavailable
	}

	if err := c.inflight.Acquire(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer c.inflight.Release()

	all := make([]ChatMessage, 0, len(msgs)+1)
	if system != "" {
		all = append(all, ChatMessage{Role: "system", Content: system})
	}
	all = append(all, msgs...)

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    all,
		Temperature: temperature,
		MaxTokens:   300,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer httputil.DrainAndClose(resp.Body)

	// The upstream is untrusted: bound the body read so a misbehaving
	// provider cannot exhaust memory.
	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API error %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal: %v", ErrUpstreamUnavailable, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrUpstreamUnavailable)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// extractJSON strips markdown fences and surrounding prose so a
// "```json {...} ```" reply still parses.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}
