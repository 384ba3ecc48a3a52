package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/observability"
)

// Option configures the Runner.
type Option func(*Runner)

// WithLogger sets a structured logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithHooks registers observability hooks fired on checkpoints.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithStepBudget sets the maximum number of model calls per run.
// Values below 1 are clamped to 1.
func WithStepBudget(budget int) Option {
	return func(r *Runner) {
		r.stepBudget = budget
	}
}

// WithClock injects the time source used for step timing and events.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}
