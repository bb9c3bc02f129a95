package proposals

// Priority levels a proposal can carry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// TypeTask tags task proposals, as opposed to the meeting/event variant.
const TypeTask = "task_proposal"

// SourceContext is the snapshot of the originating message embedded in a
// proposal, so the UI can show where a task came from after the message
// itself is gone. OriginalContent holds at most the first 1000 characters.
type SourceContext struct {
	Channel         string `json:"channel,omitempty"`
	Subject         string `json:"subject,omitempty"`
	Sender          string `json:"sender"`
	Timestamp       string `json:"timestamp"`
	OriginalContent string `json:"original_content"`
	MessageID       string `json:"message_id,omitempty"`
	ThreadID        string `json:"thread_id,omitempty"`
}

// TaskProposal is the durable output of the detection pipeline, staged for
// human approval (HITL): nothing is ever auto-committed downstream.
type TaskProposal struct {
	ProposalID    string        `json:"proposal_id"`
	Type          string        `json:"type"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	DueDate       string        `json:"due_date,omitempty"`
	Priority      string        `json:"priority"`
	Source        string        `json:"source"`
	SourceContext SourceContext `json:"source_context"`
	Confidence    float64       `json:"confidence"`
	Reasoning     string        `json:"reasoning,omitempty"`
	CreatedAt     string        `json:"created_at"`
}
