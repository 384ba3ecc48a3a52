package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/internal/runtime"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/observability"
	"github.com/aretw0/rewind/pkg/ports"
)

// DefaultStepBudget is the number of model calls allowed before the run is
// forced to produce a final answer.
const DefaultStepBudget = 5

// Runner drives the step executor in a loop with time-travel checkpointing:
// a snapshot is saved before every step, plus one final snapshot after the
// terminal state is reached, so execution can be replayed or branched from any
// prior step.
type Runner struct {
	engine     *runtime.Engine
	store      ports.CheckpointStore
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	metrics    *observability.Metrics
	stepBudget int
	clock      func() time.Time
}

// Request describes one run invocation.
type Request struct {
	// Input seeds a fresh run. Ignored when ResumeCheckpointID is set.
	Input []domain.Message

	// ResumeCheckpointID, when non-empty, restores state from the checkpoint
	// store instead of starting fresh. An unknown ID fails the run immediately
	// with domain.ErrCheckpointNotFound, before any execution.
	ResumeCheckpointID string

	// Patch holds field-level modifications applied to the restored state.
	Patch *domain.Patch
}

// New creates a runner over the engine and checkpoint store.
func New(engine *runtime.Engine, store ports.CheckpointStore, opts ...Option) *Runner {
	r := &Runner{
		engine:     engine,
		store:      store,
		logger:     logging.NewNop(),
		stepBudget: DefaultStepBudget,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.stepBudget < 1 {
		r.stepBudget = 1
	}
	return r
}

// Run executes the state machine until terminal and returns the final state.
//
// Execution is strictly sequential: one node transition per iteration, its
// output fully merged before the next begins. Cancellation is cooperative:
// the context is checked before each step.
func (r *Runner) Run(ctx context.Context, req Request) (*domain.State, error) {
	state, err := r.initialize(ctx, req)
	if err != nil {
		r.countRun("init_error")
		return nil, err
	}

	node := domain.NodeCallModel
	modelCalls := 0

	for {
		if err := ctx.Err(); err != nil {
			r.countRun("canceled")
			return nil, fmt.Errorf("run canceled before %s: %w", node, err)
		}

		// Checkpoint unconditionally before executing, so a resumed run can
		// always replay this exact step.
		if err := r.checkpoint(ctx, state, false); err != nil {
			r.countRun("store_error")
			return nil, err
		}

		if node == domain.NodeCallModel {
			// A patched flag stays honored; the budget can only tighten it.
			state.IsLastStep = state.IsLastStep || modelCalls >= r.stepBudget-1
		}

		update, err := r.step(ctx, state, node)
		if err != nil {
			r.countRun("step_error")
			return nil, fmt.Errorf("step %s failed: %w", node, err)
		}
		switch node {
		case domain.NodeCallModel:
			modelCalls++
			if r.metrics != nil {
				r.metrics.ModelCallsTotal.Inc()
			}
		case domain.NodeTools:
			// The dispatched calls are still the last message's pending ones;
			// the results have not been merged yet.
			if r.metrics != nil {
				if last, ok := state.LastMessage(); ok {
					for _, call := range last.ToolCalls {
						r.metrics.ToolCallsTotal.WithLabelValues(call.Name).Inc()
					}
				}
			}
		}

		state.Append(update.Messages...)

		next, err := r.engine.Next(state, node)
		if err != nil {
			r.countRun("routing_error")
			return nil, fmt.Errorf("routing after %s failed: %w", node, err)
		}
		r.logger.Debug("step executed", "node", node, "next", next, "messages", len(state.Messages))

		if next == domain.NodeEnd {
			break
		}
		node = next
	}

	// One more snapshot after the terminal state, so the final answer is
	// inspectable and the last real step replayable.
	if err := r.checkpoint(ctx, state, true); err != nil {
		r.countRun("store_error")
		return nil, err
	}

	r.countRun("ok")
	return state, nil
}

// ListCheckpoints returns all stored checkpoint IDs in insertion order.
func (r *Runner) ListCheckpoints(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

func (r *Runner) initialize(ctx context.Context, req Request) (*domain.State, error) {
	if req.ResumeCheckpointID == "" {
		if !req.Patch.IsZero() {
			return nil, fmt.Errorf("%w: modifications require a resume checkpoint", domain.ErrInvalidPatch)
		}
		r.logger.Debug("starting fresh run", "input_messages", len(req.Input))
		return domain.NewState(req.Input...), nil
	}

	state, err := r.store.Load(ctx, req.ResumeCheckpointID)
	if err != nil {
		return nil, fmt.Errorf("resuming from %s: %w", req.ResumeCheckpointID, err)
	}
	r.logger.Debug("resumed from checkpoint", "checkpoint_id", req.ResumeCheckpointID)

	if req.Patch.IsZero() {
		return state, nil
	}
	patched, err := req.Patch.Apply(state)
	if err != nil {
		return nil, fmt.Errorf("applying modifications to %s: %w", req.ResumeCheckpointID, err)
	}
	return patched, nil
}

func (r *Runner) step(ctx context.Context, state *domain.State, node domain.NodeID) (domain.Update, error) {
	start := r.clock()
	update, err := r.engine.Step(ctx, state, node)

	if r.metrics != nil {
		r.metrics.StepDuration.WithLabelValues(string(node)).Observe(r.clock().Sub(start).Seconds())
		if err != nil {
			r.metrics.StepErrorsTotal.WithLabelValues(string(node)).Inc()
		} else {
			r.metrics.StepsTotal.WithLabelValues(string(node)).Inc()
		}
	}
	return update, err
}

func (r *Runner) checkpoint(ctx context.Context, state *domain.State, final bool) error {
	id, err := r.store.Save(ctx, state)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	r.logger.Debug("checkpoint saved", "checkpoint_id", id, "final", final)

	if r.metrics != nil {
		r.metrics.CheckpointsSavedTotal.Inc()
	}
	if r.hooks.OnCheckpoint != nil {
		r.hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{
			EventBase:    domain.EventBase{Timestamp: r.clock(), Type: domain.EventCheckpoint},
			CheckpointID: id,
			Final:        final,
		})
	}
	return nil
}

func (r *Runner) countRun(status string) {
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(status).Inc()
	}
}
