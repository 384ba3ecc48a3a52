package rewind

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/internal/runtime"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/observability"
	"github.com/aretw0/rewind/pkg/ports"
	"github.com/aretw0/rewind/pkg/runner"
)

// Version of the library.
var Version = "0.3.0"

// Agent is the high-level entry point for the rewind library.
// It wires the step executor, the router, and the time-travel runner over a
// checkpoint store, and provides a simplified API for consumers.
type Agent struct {
	store        ports.CheckpointStore
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	metrics      *observability.Metrics
	stepBudget   int
	systemPrompt string
	clock        func() time.Time

	engine *runtime.Engine
	runner *runner.Runner
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithStore injects a checkpoint store, replacing the default in-memory one.
func WithStore(store ports.CheckpointStore) Option {
	return func(a *Agent) {
		a.store = store
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithStepBudget sets the maximum number of model calls per run.
func WithStepBudget(budget int) Option {
	return func(a *Agent) {
		a.stepBudget = budget
	}
}

// WithSystemPrompt overrides the default system prompt template.
// {{system_time}} is replaced with the current time on every model call.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithClock injects the time source (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}

// New creates an Agent over the model and tool collaborators.
func New(model ports.ChatModel, tools ports.ToolDispatcher, opts ...Option) *Agent {
	a := &Agent{
		store:        memory.NewStore(),
		logger:       logging.NewNop(),
		stepBudget:   runner.DefaultStepBudget,
		systemPrompt: runtime.DefaultSystemPrompt,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.engine = runtime.NewEngine(model, tools,
		runtime.WithSystemPrompt(a.systemPrompt),
		runtime.WithClock(a.clock),
		runtime.WithHooks(a.hooks),
		runtime.WithLogger(a.logger),
	)
	a.runner = runner.New(a.engine, a.store,
		runner.WithLogger(a.logger),
		runner.WithHooks(a.hooks),
		runner.WithMetrics(a.metrics),
		runner.WithStepBudget(a.stepBudget),
		runner.WithClock(a.clock),
	)
	return a
}

// Run starts a fresh session from the given user question and executes it
// until terminal, returning the final state.
func (a *Agent) Run(ctx context.Context, question string) (*domain.State, error) {
	return a.runner.Run(ctx, runner.Request{
		Input: []domain.Message{domain.NewUserMessage(question)},
	})
}

// RunMessages starts a fresh session from an explicit initial transcript.
func (a *Agent) RunMessages(ctx context.Context, input []domain.Message) (*domain.State, error) {
	return a.runner.Run(ctx, runner.Request{Input: input})
}

// Resume restores state from a prior checkpoint, applies the patch, and
// executes until terminal. A nil patch resumes the state unmodified.
func (a *Agent) Resume(ctx context.Context, checkpointID string, patch *domain.Patch) (*domain.State, error) {
	return a.runner.Run(ctx, runner.Request{
		ResumeCheckpointID: checkpointID,
		Patch:              patch,
	})
}

// ListCheckpoints returns all stored checkpoint IDs in insertion order.
func (a *Agent) ListCheckpoints(ctx context.Context) ([]string, error) {
	return a.store.List(ctx)
}

// Checkpoint returns the state snapshot stored under the given ID.
func (a *Agent) Checkpoint(ctx context.Context, id string) (*domain.State, error) {
	return a.store.Load(ctx, id)
}

// Store exposes the underlying checkpoint store.
func (a *Agent) Store() ports.CheckpointStore {
	return a.store
}
