package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
)

// DefaultSystemPrompt is used when no prompt is configured.
// {{system_time}} is replaced with the clock's current time in RFC3339.
const DefaultSystemPrompt = "You are a helpful AI assistant.\nSystem time: {{system_time}}"

// FallbackAnswer replaces the model output when the step budget is exhausted
// but the model still wants to call tools.
const FallbackAnswer = "Sorry, I could not find an answer to your question in the specified number of steps."

// Engine executes single node transitions of the agent graph.
type Engine struct {
	model        ports.ChatModel
	tools        ports.ToolDispatcher
	systemPrompt string
	clock        func() time.Time
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithSystemPrompt overrides the default system prompt template.
func WithSystemPrompt(prompt string) EngineOption {
	return func(e *Engine) {
		e.systemPrompt = prompt
	}
}

// WithClock injects the time source used for the system message.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine over the model and tool collaborators.
func NewEngine(model ports.ChatModel, tools ports.ToolDispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		model:        model,
		tools:        tools,
		systemPrompt: DefaultSystemPrompt,
		clock:        time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step applies one node's transition function to the state and returns the
// incremental output. The caller merges the update into the state; Step never
// mutates its input.
func (e *Engine) Step(ctx context.Context, state *domain.State, node domain.NodeID) (domain.Update, error) {
	e.fireNodeEnter(ctx, node)
	defer e.fireNodeLeave(ctx, node)

	switch node {
	case domain.NodeCallModel:
		return e.callModel(ctx, state)
	case domain.NodeTools:
		return e.executeTools(ctx, state)
	case domain.NodeHumanReview:
		return e.humanReview(state)
	default:
		return domain.Update{}, fmt.Errorf("unknown node %q", node)
	}
}

// Next returns the node that follows the one just executed.
//
// The model-call node is the single conditional branch point; its successor is
// decided by Route over the merged state. All other edges are static.
func (e *Engine) Next(state *domain.State, node domain.NodeID) (domain.NodeID, error) {
	switch node {
	case domain.NodeCallModel:
		return Route(state)
	case domain.NodeTools:
		return domain.NodeCallModel, nil
	case domain.NodeHumanReview:
		return domain.NodeEnd, nil
	default:
		return "", fmt.Errorf("unknown node %q", node)
	}
}

// callModel invokes the language model with the full transcript, prefixed by a
// system message embedding the current timestamp, with the tool catalog bound.
func (e *Engine) callModel(ctx context.Context, state *domain.State) (domain.Update, error) {
	system := domain.NewSystemMessage(e.renderSystemPrompt())

	transcript := make([]domain.Message, 0, len(state.Messages)+1)
	transcript = append(transcript, system)
	transcript = append(transcript, state.Messages...)

	response, err := e.model.Invoke(ctx, transcript, e.catalog())
	if err != nil {
		return domain.Update{}, fmt.Errorf("model invocation failed: %w", err)
	}
	response.Role = domain.RoleAssistant

	// Budget exhaustion is a graceful stop, not an error: when this is the
	// last allowed step and the model still wants to call tools, the answer
	// is replaced with a fixed fallback carrying the same message ID.
	if state.IsLastStep && response.HasToolCalls() {
		e.logger.Debug("step budget exhausted, substituting fallback answer", "message_id", response.ID)
		return domain.Update{Messages: []domain.Message{{
			ID:      response.ID,
			Role:    domain.RoleAssistant,
			Content: FallbackAnswer,
		}}}, nil
	}

	return domain.Update{Messages: []domain.Message{response}}, nil
}

// executeTools delegates every pending tool call in the last message to the
// tool dispatcher, producing one result message per call, in call order.
func (e *Engine) executeTools(ctx context.Context, state *domain.State) (domain.Update, error) {
	last, ok := state.LastMessage()
	if !ok || !last.HasToolCalls() {
		return domain.Update{}, fmt.Errorf("tools node reached without pending tool calls")
	}

	results := make([]domain.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		e.fireToolCall(ctx, call)

		result, err := e.tools.Dispatch(ctx, call)
		if err != nil {
			e.fireToolReturn(ctx, call, nil, true)
			return domain.Update{}, fmt.Errorf("tool %q failed: %w", call.Name, err)
		}
		result.Role = domain.RoleTool
		if result.ToolCallID == "" {
			result.ToolCallID = call.ID
		}

		e.fireToolReturn(ctx, call, result.Content, false)
		results = append(results, result)
	}

	return domain.Update{Messages: results}, nil
}

// humanReview re-emits the last message unchanged. The node is an explicit
// stop point marking the conversation as requiring human approval; it does not
// block for input.
func (e *Engine) humanReview(state *domain.State) (domain.Update, error) {
	last, ok := state.LastMessage()
	if !ok {
		return domain.Update{}, fmt.Errorf("human review node reached with empty transcript")
	}
	return domain.Update{Messages: []domain.Message{last.Clone()}}, nil
}

func (e *Engine) renderSystemPrompt() string {
	return strings.ReplaceAll(e.systemPrompt, "{{system_time}}", e.clock().UTC().Format(time.RFC3339))
}

func (e *Engine) catalog() []domain.Tool {
	if e.tools == nil {
		return nil
	}
	return e.tools.Catalog()
}

func (e *Engine) fireNodeEnter(ctx context.Context, node domain.NodeID) {
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventNodeEnter},
			NodeID:    node,
		})
	}
}

func (e *Engine) fireNodeLeave(ctx context.Context, node domain.NodeID) {
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventNodeLeave},
			NodeID:    node,
		})
	}
}

func (e *Engine) fireToolCall(ctx context.Context, call domain.ToolCall) {
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventToolCall},
			ToolName:  call.Name,
			CallID:    call.ID,
			Input:     call.Args,
		})
	}
}

func (e *Engine) fireToolReturn(ctx context.Context, call domain.ToolCall, output any, isError bool) {
	if e.hooks.OnToolReturn != nil {
		e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventToolReturn},
			ToolName:  call.Name,
			CallID:    call.ID,
			Output:    output,
			IsError:   isError,
		})
	}
}
