package ports

import (
	"context"

	"github.com/aretw0/rewind/pkg/domain"
)

// ChatModel is the external language-model collaborator.
//
// Implementations receive the full transcript (system message first) and the
// catalog of invocable tools, and return exactly one assistant message which
// may carry zero or more tool call requests. Failures propagate to the caller;
// retry policy belongs to the implementation, not the orchestrator.
type ChatModel interface {
	Invoke(ctx context.Context, transcript []domain.Message, tools []domain.Tool) (domain.Message, error)
}

// ChatModelFunc adapts a function to the ChatModel interface.
type ChatModelFunc func(ctx context.Context, transcript []domain.Message, tools []domain.Tool) (domain.Message, error)

// Invoke implements ChatModel.
func (f ChatModelFunc) Invoke(ctx context.Context, transcript []domain.Message, tools []domain.Tool) (domain.Message, error) {
	return f(ctx, transcript, tools)
}
