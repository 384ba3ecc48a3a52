package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/rewind/pkg/domain"
)

// sensitiveKeywords triggers the human-review detour. Matching is a
// case-insensitive substring scan.
var sensitiveKeywords = []string{"suicide", "kill myself", "password", "credentials"}

// ContainsSensitiveInfo reports whether the message content matches any of the
// sensitive keywords.
func ContainsSensitiveInfo(msg domain.Message) bool {
	content := strings.ToLower(msg.Content)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}

// Route decides the node that follows the model-call node.
//
// It examines only the most recently appended message, which must be
// assistant-authored: the router only ever runs on model output, so anything
// else is a graph wiring bug and fails with domain.ErrNotAssistant.
// Route is pure.
func Route(state *domain.State) (domain.NodeID, error) {
	last, ok := state.LastMessage()
	if !ok {
		return "", fmt.Errorf("%w: transcript is empty", domain.ErrNotAssistant)
	}
	if last.Role != domain.RoleAssistant {
		return "", fmt.Errorf("%w: got %q", domain.ErrNotAssistant, last.Role)
	}

	if ContainsSensitiveInfo(last) {
		return domain.NodeHumanReview, nil
	}
	if last.HasToolCalls() {
		return domain.NodeTools, nil
	}
	return domain.NodeEnd, nil
}
