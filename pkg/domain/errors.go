package domain

import "errors"

// ErrCheckpointNotFound is returned when a checkpoint ID cannot be found in the store.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrNotAssistant is returned when the router runs on a non-assistant message.
// It indicates a graph wiring bug and is not retried.
var ErrNotAssistant = errors.New("expected assistant message at routing point")

// ErrInvalidPatch is returned when a resume patch fails validation.
// Validation happens before any state mutation, so a failed patch leaves the
// loaded state untouched.
var ErrInvalidPatch = errors.New("invalid resume patch")
