// Package domain contains the core value types of the rewind engine:
// conversation messages, run state, checkpoint patches, node identifiers,
// lifecycle events, and the sentinel errors shared across adapters.
//
// The package has no dependencies on the runtime or any adapter, so external
// integrations can speak the engine's vocabulary without importing it.
package domain
