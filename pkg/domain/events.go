package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventCheckpoint EventType = "checkpoint"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID NodeID `json:"node_id"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Input    any    `json:"input,omitempty"`
	Output   any    `json:"output,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// CheckpointEvent represents a snapshot being persisted.
type CheckpointEvent struct {
	EventBase
	CheckpointID string `json:"checkpoint_id"`
	Final        bool   `json:"final"`
}

// LifecycleHooks defines callbacks for runner observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnCheckpoint func(context.Context, *CheckpointEvent)
}
