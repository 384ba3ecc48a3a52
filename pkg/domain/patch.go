package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Patch is the closed set of fields modifiable when resuming from a checkpoint.
// Nil pointer fields are left unchanged. Extra keys are merged into State.Extra.
type Patch struct {
	Messages   *[]Message     `mapstructure:"messages"`
	IsLastStep *bool          `mapstructure:"is_last_step"`
	Extra      map[string]any `mapstructure:"extra"`
}

// PatchFromMap decodes a loose modification map into a typed Patch.
// Unknown keys fail with ErrInvalidPatch before any state is touched.
func PatchFromMap(mods map[string]any) (*Patch, error) {
	if mods == nil {
		return &Patch{}, nil
	}

	var p Patch
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &p,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building patch decoder: %w", err)
	}
	if err := decoder.Decode(mods); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return &p, nil
}

// Validate checks the patch for structural problems.
func (p *Patch) Validate() error {
	if p.Messages != nil {
		for i, m := range *p.Messages {
			switch m.Role {
			case RoleSystem, RoleUser, RoleAssistant, RoleTool:
			default:
				return fmt.Errorf("%w: messages[%d] has unknown role %q", ErrInvalidPatch, i, m.Role)
			}
		}
	}
	return nil
}

// Apply validates the patch and returns a patched copy of the state.
// The input state is never mutated, so a failing patch cannot leave it
// partially modified.
func (p *Patch) Apply(state *State) (*State, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := state.Clone()
	if p.Messages != nil {
		out.Messages = make([]Message, 0, len(*p.Messages))
		for _, m := range *p.Messages {
			out.Messages = append(out.Messages, m.Clone())
		}
	}
	if p.IsLastStep != nil {
		out.IsLastStep = *p.IsLastStep
	}
	if len(p.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(p.Extra))
		}
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out, nil
}

// IsZero reports whether the patch modifies nothing.
func (p *Patch) IsZero() bool {
	return p == nil || (p.Messages == nil && p.IsLastStep == nil && len(p.Extra) == 0)
}
