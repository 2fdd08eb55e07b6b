package core

import (
	"context"
	"iter"
	"log/slog"

	"sortec/entity"
	"sortec/internal/workflow"
	"sortec/lib/sl"
)

// MetricsRecorder receives workflow outcomes; nil disables recording.
type MetricsRecorder interface {
	IncrementSubmitted()
	ObserveDecision(status entity.Status, outcome entity.Outcome)
}

// Core is the single entry point used by the HTTP handlers and the bot.
type Core struct {
	wf      *workflow.Workflow
	metrics MetricsRecorder
	log     *slog.Logger
}

func New(wf *workflow.Workflow, log *slog.Logger) *Core {
	if wf == nil {
		panic("workflow is nil")
	}
	return &Core{
		wf:  wf,
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

func (c *Core) Submit(ctx context.Context, candidate *entity.Participant) (*entity.Registration, error) {
	reg, err := c.wf.Submit(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.IncrementSubmitted()
	}
	return reg, nil
}

func (c *Core) Approve(ctx context.Context, id string) (*entity.Decision, error) {
	return c.decide(ctx, id, entity.StatusApproved, c.wf.Approve)
}

func (c *Core) Deny(ctx context.Context, id string) (*entity.Decision, error) {
	return c.decide(ctx, id, entity.StatusDenied, c.wf.Deny)
}

func (c *Core) decide(ctx context.Context, id string, target entity.Status, fn func(context.Context, string) (*entity.Decision, error)) (*entity.Decision, error) {
	decision, err := fn(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.ObserveDecision(target, decision.Outcome)
	}
	c.log.With(
		slog.String("id", id),
		slog.String("target", string(target)),
		slog.String("outcome", string(decision.Outcome)),
	).Debug("registration decision")
	return decision, nil
}

func (c *Core) Update(ctx context.Context, id string, update *entity.ParticipantUpdate) (*entity.Registration, error) {
	return c.wf.Update(ctx, id, update)
}

func (c *Core) Remove(ctx context.Context, id string) error {
	return c.wf.Remove(ctx, id)
}

func (c *Core) List(ctx context.Context) iter.Seq2[*entity.Registration, error] {
	return c.wf.List(ctx)
}

func (c *Core) GetById(ctx context.Context, id string) (*entity.Registration, error) {
	return c.wf.GetById(ctx, id)
}

func (c *Core) GetByCode(ctx context.Context, code string) (*entity.Registration, error) {
	return c.wf.GetByCode(ctx, code)
}

func (c *Core) Count(ctx context.Context) (int64, error) {
	return c.wf.Count(ctx)
}
