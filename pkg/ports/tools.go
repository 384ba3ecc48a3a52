package ports

import (
	"context"

	"github.com/aretw0/rewind/pkg/domain"
)

// ToolDispatcher is the external tool collaborator.
//
// Multiplicity is one call in, one result message out. Tool failures propagate
// to the caller unless the dispatcher chooses to encode them as result content.
type ToolDispatcher interface {
	// Dispatch executes a single tool call and returns its result message.
	Dispatch(ctx context.Context, call domain.ToolCall) (domain.Message, error)

	// Catalog returns the descriptors of the tools available for binding.
	Catalog() []domain.Tool
}
