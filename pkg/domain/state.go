package domain

// State represents the current snapshot of a run.
// It is owned exclusively by the running session; stores copy on save and load.
type State struct {
	// Messages is the ordered conversation transcript. Append-only during a run.
	Messages []Message `json:"messages"`

	// IsLastStep signals that the next model call is the final one allowed by
	// the step budget. The model node substitutes a fallback answer if the
	// model still wants to call tools on this step.
	IsLastStep bool `json:"is_last_step"`

	// Extra holds additional session fields settable via resume patches.
	// No omitempty: an empty map must survive the snapshot round trip as-is.
	Extra map[string]any `json:"extra"`
}

// NewState creates a state seeded with the initial input messages.
func NewState(input ...Message) *State {
	s := &State{
		Messages: make([]Message, 0, len(input)),
		Extra:    make(map[string]any),
	}
	for _, m := range input {
		s.Messages = append(s.Messages, m.Clone())
	}
	return s
}

// Append merges new messages into the transcript.
func (s *State) Append(msgs ...Message) {
	for _, m := range msgs {
		s.Messages = append(s.Messages, m.Clone())
	}
}

// LastMessage returns the most recently appended message.
// The second return is false when the transcript is empty.
func (s *State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep copy, isolating the caller from further mutation.
func (s *State) Clone() *State {
	out := &State{
		Messages:   make([]Message, len(s.Messages)),
		IsLastStep: s.IsLastStep,
	}
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	if s.Extra != nil {
		out.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
