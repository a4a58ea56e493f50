package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultModel      = "gpt-4o-mini"
	defaultMaxTokens  = 2048
	defaultMaxRetries = 3
	maxBackoff        = 30 * time.Second
)

// systemPrompts select the instruction block per workflow. The model is
// asked for a single JSON object in every workflow; the orchestrator
// owns schema validation.
var systemPrompts = map[WorkflowKind]string{
	WorkflowTaskExtraction: "You are an email triage assistant. Analyze the email thread and decide " +
		"whether it requires action from the recipient. Respond with a single JSON object with fields: " +
		`requires_action (bool), confidence_score (0-1), reason (string), and, when action is required, ` +
		`task {title, description, priority, business_category, due_date}. business_category is one of ` +
		`Revenue-Generating, Operational, Relationship-Building, Compliance, Other.`,
	WorkflowDraftGeneration: "You are an email assistant drafting a reply on the user's behalf. " +
		`Respond with a single JSON object: {subject, body, to, cc}. cc is a list of addresses and may be empty. ` +
		"Match the tone of the thread and keep the reply concise.",
	WorkflowSummarization: "You summarize categorized email threads. Respond with a single JSON object: " +
		`{key_highlights, category}. key_highlights is a short prose digest of what matters.`,
}

// ClientConfig configures the generation client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
}

// Client calls an OpenAI-compatible chat-completions endpoint with a
// bounded retry budget. Only throttles, server faults, and transport
// errors are retried; everything else fails immediately.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
		log:  log,
	}
}

// Generate runs one generation call, retrying transient failures up to
// the request's ceiling (or the default), and returns the repaired JSON
// payload of the model's reply.
func (c *Client) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	retries := req.MaxRetries
	if retries <= 0 {
		retries = c.cfg.MaxRetries
	}
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			c.log.Debug().
				Str("workflow", string(req.Kind)).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying generation call")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := c.call(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var re *retryableError
		if !errors.As(err, &re) {
			break
		}
	}

	c.log.Warn().
		Err(lastErr).
		Str("workflow", string(req.Kind)).
		Str("actor", req.ActorID).
		Str("entity", req.EntityID).
		Msg("generation call failed after retries")
	return nil, fmt.Errorf("generation failed for %s: %w", req.Kind, lastErr)
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) call(ctx context.Context, req Request) (json.RawMessage, error) {
	body := chatRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompts[req.Kind]},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("transport failure: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, &retryableError{err: fmt.Errorf("generation service returned %d: %s", resp.StatusCode, respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned %d: %s", resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("generation service returned no choices")
	}

	return RepairJSON(parsed.Choices[0].Message.Content)
}

// RepairJSON extracts the JSON object from a model reply, tolerating
// markdown code fences and prose around the payload.
func RepairJSON(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	candidate := s[start : end+1]

	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("malformed JSON in model reply")
	}
	return json.RawMessage(candidate), nil
}

// backoffDelay is exponential: 1s, 2s, 4s, ... capped at maxBackoff.
func backoffDelay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

type chatRequest struct {
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Compile-time interface compliance check.
var _ Generator = (*Client)(nil)
