// Package genai provides the text-generation service boundary used by
// the extraction workflows, plus an HTTP client for an OpenAI-compatible
// chat-completions endpoint.
package genai

import (
	"context"
	"encoding/json"
)

// WorkflowKind identifies which extraction workflow a generation call
// belongs to; it selects the system prompt and shows up in logs.
type WorkflowKind string

const (
	WorkflowTaskExtraction  WorkflowKind = "task_extraction"
	WorkflowDraftGeneration WorkflowKind = "draft_generation"
	WorkflowSummarization   WorkflowKind = "summarization"
)

// Request is one generation call. MaxRetries of zero means the client's
// default retry ceiling applies. ActorID and EntityID are logging
// attribution only.
type Request struct {
	Prompt     string
	Kind       WorkflowKind
	MaxRetries int
	ActorID    string
	EntityID   string
}

// Generator produces a structured JSON result for a prompt. The retry
// loop lives behind this boundary; an error means the retry budget was
// exhausted.
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}
