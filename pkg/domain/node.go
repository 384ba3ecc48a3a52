package domain

// NodeID names a unit of computation in the agent graph.
type NodeID string

const (
	// NodeCallModel invokes the language model with the transcript and bound tools.
	NodeCallModel NodeID = "call_model"
	// NodeTools executes every pending tool call from the last assistant message.
	NodeTools NodeID = "tools"
	// NodeHumanReview re-emits the flagged message as an explicit stop point.
	NodeHumanReview NodeID = "human_review"
	// NodeEnd is the terminal marker. It has no transition function.
	NodeEnd NodeID = "__end__"
)

// Update is the partial output of one node transition.
type Update struct {
	// Messages are appended to the state transcript by the runner.
	Messages []Message
}
