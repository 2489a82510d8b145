// Package genai is the text-completion client shared by the intent and
// explanation workers. Calls go through a circuit breaker so a failing LLM
// gateway is skipped quickly and callers fall back to deterministic output.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	httpclient "meetup-workers/internal/common/http"
	"meetup-workers/internal/common/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "genai"

type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxTokens       int
	Temperature     float64
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type Client struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	http        *httpclient.Client
	cb          *gobreaker.CircuitBreaker[string]
}

func NewClient(cfg Config) *Client {
	hc := httpclient.NewClient(cfg.Timeout)
	if cfg.APIKey != "" {
		hc = hc.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A caller giving up is not a gateway failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		http:        hc,
		cb:          cb,
	}
}

// Complete sends a prompt and returns the generated text. An open breaker
// returns errors.ErrUnavailable without a network call.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := c.cb.Execute(func() (string, error) {
		var resp generateResponse
		err := c.http.PostJSON(ctx, c.baseURL+"/api/ai/generate", generateRequest{
			Prompt:      prompt,
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		}, &resp)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(resp.Text) == "" {
			return "", fmt.Errorf("%w: empty completion", apperrors.ErrUnavailable)
		}
		return resp.Text, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
		}
		return "", fmt.Errorf("genai complete: %w", err)
	}
	return text, nil
}

// State reports the breaker state, used by the readiness check.
func (c *Client) State() string {
	return c.cb.State().String()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ExtractJSON returns the first JSON object in an LLM reply, tolerating code
// fences and surrounding prose.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
