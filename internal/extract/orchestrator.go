package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/genai"
)

// Orchestrator drives the three generation workflows. Every workflow
// follows the same shape: filter input, build a prompt, call the
// generator, validate the structured result. Task extraction and draft
// generation never return errors to the caller; they degrade to a
// default or nil result instead. Summarization propagates failure
// because a missing summary is user visible.
type Orchestrator struct {
	gen    genai.Generator
	mapper *CategoryMapper
	log    zerolog.Logger
}

func NewOrchestrator(gen genai.Generator, mapper *CategoryMapper, log zerolog.Logger) *Orchestrator {
	if mapper == nil {
		mapper = NewCategoryMapper(nil)
	}
	return &Orchestrator{gen: gen, mapper: mapper, log: log}
}

// defaultExtraction is the degraded result used whenever task
// extraction cannot or should not run. The category is always a member
// of the UI taxonomy.
func defaultExtraction(reason string) domain.TaskExtraction {
	return domain.TaskExtraction{
		RequiresAction: false,
		Confidence:     0,
		Reason:         reason,
		Category:       domain.CategoryNotifications,
	}
}

// eligibleMessages filters out messages missing the headers extraction
// depends on and returns the survivors sorted ascending by date.
func eligibleMessages(thread *domain.Thread) []domain.Message {
	if thread == nil {
		return nil
	}
	sorted := domain.Thread{ID: thread.ID, Messages: make([]domain.Message, 0, len(thread.Messages))}
	for _, m := range thread.Messages {
		if m.Headers.Date == "" || m.Headers.From == "" || m.Headers.To == "" {
			continue
		}
		sorted.Messages = append(sorted.Messages, m)
	}
	sorted.SortMessagesByDate()
	return sorted.Messages
}

// ExtractTask classifies a thread and, when action is required,
// produces a structured task. It never fails: invalid input and
// generation errors both collapse into the default no-action result.
func (o *Orchestrator) ExtractTask(ctx context.Context, thread *domain.Thread, recipient string) domain.TaskExtraction {
	msgs := eligibleMessages(thread)
	if len(msgs) == 0 {
		o.log.Debug().Str("recipient", recipient).Msg("no eligible messages, skipping task extraction")
		return defaultExtraction("no eligible messages in thread")
	}

	raw, err := o.gen.Generate(ctx, genai.Request{
		Prompt:   buildTaskPrompt(msgs, recipient),
		Kind:     genai.WorkflowTaskExtraction,
		ActorID:  recipient,
		EntityID: thread.ID,
	})
	if err != nil {
		o.log.Warn().Err(err).Str("thread_id", thread.ID).Msg("task extraction degraded to default result")
		return defaultExtraction("extraction failed")
	}

	var result domain.TaskExtraction
	if err := json.Unmarshal(raw, &result); err != nil {
		o.log.Warn().Err(err).Str("thread_id", thread.ID).Msg("malformed extraction result, using default")
		return defaultExtraction("malformed extraction result")
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	} else if result.Confidence > 1 {
		result.Confidence = 1
	}
	if !result.RequiresAction {
		result.Task = nil
	}

	business := ""
	if result.Task != nil {
		business = result.Task.BusinessCategory
	}
	result.Category = o.mapper.Map(business)
	return result
}

// GenerateDraft produces a reply draft for the thread, or nil when no
// valid draft could be produced. Errors are logged, never returned.
func (o *Orchestrator) GenerateDraft(ctx context.Context, thread *domain.Thread, recipient, senderName string) *domain.Draft {
	msgs := eligibleMessages(thread)
	if len(msgs) == 0 {
		return nil
	}

	raw, err := o.gen.Generate(ctx, genai.Request{
		Prompt:   buildDraftPrompt(msgs, recipient, senderName),
		Kind:     genai.WorkflowDraftGeneration,
		ActorID:  recipient,
		EntityID: thread.ID,
	})
	if err != nil {
		o.log.Warn().Err(err).Str("thread_id", thread.ID).Msg("draft generation failed, no draft produced")
		return nil
	}

	var draft domain.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		o.log.Warn().Err(err).Str("thread_id", thread.ID).Msg("malformed draft result, no draft produced")
		return nil
	}
	if !draft.Valid() {
		o.log.Debug().Str("thread_id", thread.ID).Msg("draft missing required fields, discarded")
		return nil
	}
	if draft.CC == nil {
		draft.CC = []string{}
	}
	return &draft
}

// Summarize runs the summarization workflow over a caller-assembled
// prompt. Unlike the other workflows it returns errors: the caller
// surfaces them to the user.
func (o *Orchestrator) Summarize(ctx context.Context, prompt, actorID string) (*domain.Summary, error) {
	raw, err := o.gen.Generate(ctx, genai.Request{
		Prompt:  prompt,
		Kind:    genai.WorkflowSummarization,
		ActorID: actorID,
	})
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}

	var summary domain.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("summarization failed: malformed result: %w", err)
	}

	summary.Highlights = strings.TrimSpace(summary.Highlights)
	if !domain.IsUICategory(summary.Category) {
		summary.Category = domain.CategoryNotifications
	}
	return &summary, nil
}
