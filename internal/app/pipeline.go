package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/extract"
	"github.com/lu-zhengda/mailboard/internal/fetch"
	"github.com/lu-zhengda/mailboard/internal/provider"
	"github.com/lu-zhengda/mailboard/internal/store"
	"github.com/lu-zhengda/mailboard/internal/watch"
)

// Pipeline drives the ingestion flow for a single account: fetch a
// thread, extract a task and optionally a reply draft, persist the
// results, and keep the push-notification watch alive.
type Pipeline struct {
	store        store.Store
	provider     provider.MailProvider
	fetcher      *fetch.Fetcher
	orch         *extract.Orchestrator
	watch        *watch.Manager
	accountID    string
	email        string
	draftReplies bool
	log          zerolog.Logger
}

type PipelineOptions struct {
	AccountID    string
	Email        string
	DraftReplies bool
}

func NewPipeline(s store.Store, p provider.MailProvider, f *fetch.Fetcher,
	o *extract.Orchestrator, w *watch.Manager, opts PipelineOptions, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:        s,
		provider:     p,
		fetcher:      f,
		orch:         o,
		watch:        w,
		accountID:    opts.AccountID,
		email:        opts.Email,
		draftReplies: opts.DraftReplies,
		log:          log,
	}
}

// ProcessThread runs extraction over one thread and persists whatever
// it produces. Extraction itself never fails; only fetch and
// persistence errors surface.
func (p *Pipeline) ProcessThread(ctx context.Context, threadID string) error {
	thread, err := p.fetcher.FetchThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}
	return p.process(ctx, thread)
}

func (p *Pipeline) process(ctx context.Context, thread *domain.Thread) error {
	result := p.orch.ExtractTask(ctx, thread, p.email)
	if !result.RequiresAction || result.Task == nil {
		p.log.Debug().Str("thread_id", thread.ID).Str("category", result.Category).Msg("no task for thread")
		return nil
	}

	record := &store.TaskRecord{
		AccountID:        p.accountID,
		ThreadID:         thread.ID,
		Title:            result.Task.Title,
		Description:      result.Task.Description,
		Priority:         result.Task.Priority,
		BusinessCategory: result.Task.BusinessCategory,
		DueDate:          result.Task.DueDate,
		Category:         result.Category,
		Confidence:       result.Confidence,
		Reason:           result.Reason,
	}
	if err := p.store.UpsertTask(ctx, record); err != nil {
		return fmt.Errorf("failed to persist task for thread %s: %w", thread.ID, err)
	}
	p.log.Info().
		Str("thread_id", thread.ID).
		Str("category", result.Category).
		Str("title", result.Task.Title).
		Msg("task created")

	if !p.draftReplies {
		return nil
	}
	draft := p.orch.GenerateDraft(ctx, thread, p.email, "")
	if draft == nil {
		return nil
	}
	if err := p.store.SaveDraft(ctx, &store.DraftRecord{
		AccountID: p.accountID,
		ThreadID:  thread.ID,
		Subject:   draft.Subject,
		Body:      draft.Body,
		To:        draft.To,
		CC:        draft.CC,
	}); err != nil {
		return fmt.Errorf("failed to persist draft for thread %s: %w", thread.ID, err)
	}
	return nil
}

// IngestSince fetches every inbox thread updated after the boundary and
// runs extraction over each. A single thread's failure does not stop
// the batch; the returned count is the number of threads processed.
func (p *Pipeline) IngestSince(ctx context.Context, since time.Time) (int, error) {
	threads, err := p.fetcher.FetchSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list threads: %w", err)
	}

	processed := 0
	for _, thread := range threads {
		if err := p.process(ctx, &thread); err != nil {
			p.log.Warn().Err(err).Str("thread_id", thread.ID).Msg("failed to process thread")
			continue
		}
		processed++
	}
	p.log.Info().Int("processed", processed).Int("total", len(threads)).Msg("ingestion batch complete")
	return processed, nil
}

// InitializeSubscription registers the push-notification watch and
// persists its state.
func (p *Pipeline) InitializeSubscription(ctx context.Context) (*domain.Subscription, error) {
	state, err := p.watch.Initialize(ctx, p.accountID, p.provider)
	if err != nil {
		return nil, err
	}
	return p.persistWatchState(ctx, state)
}

// RenewSubscription re-registers the watch and persists the fresh
// state. An auth failure has already flipped the account's connection
// flag by the time the error reaches the caller.
func (p *Pipeline) RenewSubscription(ctx context.Context) (*domain.Subscription, error) {
	state, err := p.watch.Renew(ctx, p.accountID, p.email, p.provider)
	if err != nil {
		return nil, err
	}
	return p.persistWatchState(ctx, state)
}

// StopSubscription stops the watch. Best effort.
func (p *Pipeline) StopSubscription(ctx context.Context) {
	p.watch.Remove(ctx, p.accountID, p.provider)
}

// PipelineFactory builds the pipeline for one account. Used by RenewDue
// to renew accounts discovered from the store.
type PipelineFactory func(accountID, email string) *Pipeline

// RenewDue renews every connected account whose watch expires within
// the window. One account's failure does not stop the rest; the return
// value is the number of successful renewals out of those due.
func RenewDue(ctx context.Context, s store.Store, within time.Duration,
	factory PipelineFactory, log zerolog.Logger) (renewed, due int, err error) {
	subs, err := s.ListExpiringSubscriptions(ctx, within)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}

	for _, sub := range subs {
		acct, err := s.GetAccount(ctx, sub.AccountID)
		if err != nil {
			log.Warn().Err(err).Str("account_id", sub.AccountID).Msg("skipping renewal")
			continue
		}
		if _, err := factory(acct.ID, acct.Email).RenewSubscription(ctx); err != nil {
			log.Warn().Err(err).Str("account_id", sub.AccountID).Msg("renewal failed")
			continue
		}
		renewed++
	}
	return renewed, len(subs), nil
}

func (p *Pipeline) persistWatchState(ctx context.Context, state *provider.WatchState) (*domain.Subscription, error) {
	sub := &domain.Subscription{
		AccountID:  p.accountID,
		HistoryID:  state.HistoryID,
		Expiration: state.Expiration,
	}
	if err := p.store.SetSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}
	return sub, nil
}
