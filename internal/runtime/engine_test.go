package runtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns canned messages in order, recording the transcripts it
// was invoked with.
type scriptedModel struct {
	responses   []domain.Message
	calls       int
	transcripts [][]domain.Message
	tools       [][]domain.Tool
}

func (m *scriptedModel) Invoke(ctx context.Context, transcript []domain.Message, tools []domain.Tool) (domain.Message, error) {
	m.transcripts = append(m.transcripts, transcript)
	m.tools = append(m.tools, tools)
	if m.calls >= len(m.responses) {
		return domain.Message{}, fmt.Errorf("scripted model exhausted after %d calls", m.calls)
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

// echoDispatcher answers every call with a fixed result.
type echoDispatcher struct {
	catalog []domain.Tool
	calls   []domain.ToolCall
	err     error
}

func (d *echoDispatcher) Dispatch(ctx context.Context, call domain.ToolCall) (domain.Message, error) {
	d.calls = append(d.calls, call)
	if d.err != nil {
		return domain.Message{}, d.err
	}
	return domain.NewToolMessage("result for "+call.Name, call.ID), nil
}

func (d *echoDispatcher) Catalog() []domain.Tool {
	return d.catalog
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestEngine_CallModel_PrependsTimestampedSystemMessage(t *testing.T) {
	model := &scriptedModel{responses: []domain.Message{domain.NewAssistantMessage("hello")}}
	catalog := []domain.Tool{{Name: "search", Description: "find things"}}
	engine := NewEngine(model, &echoDispatcher{catalog: catalog}, WithClock(fixedClock))

	state := domain.NewState(domain.NewUserMessage("hi"))
	update, err := engine.Step(context.Background(), state, domain.NodeCallModel)
	require.NoError(t, err)

	require.Len(t, update.Messages, 1)
	assert.Equal(t, domain.RoleAssistant, update.Messages[0].Role)

	// The invocation transcript is system + full state transcript; the state
	// itself gains no system message.
	require.Len(t, model.transcripts, 1)
	sent := model.transcripts[0]
	require.Len(t, sent, 2)
	assert.Equal(t, domain.RoleSystem, sent[0].Role)
	assert.Contains(t, sent[0].Content, "2025-06-01T12:00:00Z")
	assert.Equal(t, domain.RoleUser, sent[1].Role)
	assert.Len(t, state.Messages, 1)

	// Tool catalog is bound on every invocation.
	require.Len(t, model.tools, 1)
	assert.Equal(t, catalog, model.tools[0])
}

func TestEngine_CallModel_CustomPrompt(t *testing.T) {
	model := &scriptedModel{responses: []domain.Message{domain.NewAssistantMessage("ok")}}
	engine := NewEngine(model, &echoDispatcher{},
		WithClock(fixedClock),
		WithSystemPrompt("Answer briefly. Now: {{system_time}}"),
	)

	_, err := engine.Step(context.Background(), domain.NewState(domain.NewUserMessage("q")), domain.NodeCallModel)
	require.NoError(t, err)
	assert.Equal(t, "Answer briefly. Now: 2025-06-01T12:00:00Z", model.transcripts[0][0].Content)
}

func TestEngine_CallModel_BudgetExhausted_SubstitutesFallback(t *testing.T) {
	wanted := domain.NewAssistantMessage("still searching",
		domain.ToolCall{ID: "c1", Name: "search"},
	)
	model := &scriptedModel{responses: []domain.Message{wanted}}
	engine := NewEngine(model, &echoDispatcher{}, WithClock(fixedClock))

	state := domain.NewState(domain.NewUserMessage("q"))
	state.IsLastStep = true

	update, err := engine.Step(context.Background(), state, domain.NodeCallModel)
	require.NoError(t, err)
	require.Len(t, update.Messages, 1)

	got := update.Messages[0]
	assert.Equal(t, FallbackAnswer, got.Content)
	assert.Empty(t, got.ToolCalls, "fallback must not request tools")
	assert.Equal(t, wanted.ID, got.ID, "fallback keeps the original message ID")
}

func TestEngine_CallModel_LastStepWithoutToolCalls_Passes(t *testing.T) {
	model := &scriptedModel{responses: []domain.Message{domain.NewAssistantMessage("final answer")}}
	engine := NewEngine(model, &echoDispatcher{}, WithClock(fixedClock))

	state := domain.NewState(domain.NewUserMessage("q"))
	state.IsLastStep = true

	update, err := engine.Step(context.Background(), state, domain.NodeCallModel)
	require.NoError(t, err)
	assert.Equal(t, "final answer", update.Messages[0].Content)
}

func TestEngine_ExecuteTools_OneResultPerCall(t *testing.T) {
	dispatcher := &echoDispatcher{}
	engine := NewEngine(&scriptedModel{}, dispatcher, WithClock(fixedClock))

	state := domain.NewState(domain.NewAssistantMessage("looking up",
		domain.ToolCall{ID: "c1", Name: "search", Args: map[string]any{"query": "go"}},
		domain.ToolCall{ID: "c2", Name: "fetch", Args: map[string]any{"url": "https://example.com"}},
	))

	update, err := engine.Step(context.Background(), state, domain.NodeTools)
	require.NoError(t, err)

	require.Len(t, update.Messages, 2)
	assert.Equal(t, domain.RoleTool, update.Messages[0].Role)
	assert.Equal(t, "c1", update.Messages[0].ToolCallID)
	assert.Equal(t, "c2", update.Messages[1].ToolCallID)
	require.Len(t, dispatcher.calls, 2)
	assert.Equal(t, "search", dispatcher.calls[0].Name)
	assert.Equal(t, "fetch", dispatcher.calls[1].Name)
}

func TestEngine_ExecuteTools_DispatcherErrorPropagates(t *testing.T) {
	dispatcher := &echoDispatcher{err: fmt.Errorf("network down")}
	engine := NewEngine(&scriptedModel{}, dispatcher)

	state := domain.NewState(domain.NewAssistantMessage("looking up",
		domain.ToolCall{ID: "c1", Name: "search"},
	))

	_, err := engine.Step(context.Background(), state, domain.NodeTools)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}

func TestEngine_ExecuteTools_NoPendingCalls(t *testing.T) {
	engine := NewEngine(&scriptedModel{}, &echoDispatcher{})
	state := domain.NewState(domain.NewAssistantMessage("nothing pending"))

	_, err := engine.Step(context.Background(), state, domain.NodeTools)
	assert.Error(t, err)
}

func TestEngine_HumanReview_ReemitsLastMessage(t *testing.T) {
	engine := NewEngine(&scriptedModel{}, &echoDispatcher{})
	flagged := domain.NewAssistantMessage("my password is hunter2")
	state := domain.NewState(domain.NewUserMessage("q"), flagged)

	update, err := engine.Step(context.Background(), state, domain.NodeHumanReview)
	require.NoError(t, err)
	require.Len(t, update.Messages, 1)
	assert.Equal(t, flagged, update.Messages[0])
}

func TestEngine_Next_StaticEdges(t *testing.T) {
	engine := NewEngine(&scriptedModel{}, &echoDispatcher{})

	next, err := engine.Next(domain.NewState(), domain.NodeTools)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeCallModel, next)

	next, err = engine.Next(domain.NewState(), domain.NodeHumanReview)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeEnd, next)
}

func TestEngine_Next_ModelOutputRouted(t *testing.T) {
	engine := NewEngine(&scriptedModel{}, &echoDispatcher{})

	state := domain.NewState(domain.NewAssistantMessage("done"))
	next, err := engine.Next(state, domain.NodeCallModel)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeEnd, next)
}

func TestEngine_Hooks_Fire(t *testing.T) {
	var entered, left []domain.NodeID
	var toolCalls, toolReturns int

	hooks := domain.LifecycleHooks{
		OnNodeEnter:  func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		OnNodeLeave:  func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.NodeID) },
		OnToolCall:   func(_ context.Context, _ *domain.ToolEvent) { toolCalls++ },
		OnToolReturn: func(_ context.Context, _ *domain.ToolEvent) { toolReturns++ },
	}
	engine := NewEngine(&scriptedModel{}, &echoDispatcher{}, WithHooks(hooks))

	state := domain.NewState(domain.NewAssistantMessage("looking up",
		domain.ToolCall{ID: "c1", Name: "search"},
	))
	_, err := engine.Step(context.Background(), state, domain.NodeTools)
	require.NoError(t, err)

	assert.Equal(t, []domain.NodeID{domain.NodeTools}, entered)
	assert.Equal(t, []domain.NodeID{domain.NodeTools}, left)
	assert.Equal(t, 1, toolCalls)
	assert.Equal(t, 1, toolReturns)
}

var _ ports.ChatModel = (*scriptedModel)(nil)
var _ ports.ToolDispatcher = (*echoDispatcher)(nil)
