// Package rewind is a minimal conversational agent orchestrator with
// time-travel checkpointing.
//
// A run routes messages through three nodes: a model call, tool execution,
// and a human-review gate. The model-call output is the single conditional
// branch point; every other edge is static. Before each step the full state
// is checkpointed, so any prior step can be replayed or branched, optionally
// with a typed patch applied to the restored state.
//
// The language model, the tool catalog, and the checkpoint backend are
// collaborators behind the interfaces in pkg/ports; ready-made adapters live
// under pkg/adapters (in-memory and Redis stores, an OpenAI-compatible chat
// model, an MCP tool dispatcher, and an HTTP surface).
//
// Minimal usage:
//
//	agent := rewind.New(model, tools, rewind.WithStepBudget(5))
//	state, err := agent.Run(ctx, "what is the answer?")
//	ids, _ := agent.ListCheckpoints(ctx)
//	state, err = agent.Resume(ctx, ids[1], nil) // branch from step 1
package rewind
