package domain

import "time"

// Action is the kind of transition a history record documents.
type Action string

const (
	ActionSubmit    Action = "submit"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionWithdraw  Action = "withdraw"
	ActionCondition Action = "condition" // Automatic routing, no actor
	ActionComplete  Action = "complete"  // Automatic completion, no actor
)

// Result values accepted by Approve.
const (
	ResultApprove = "approve"
	ResultReject  = "reject"
)

// HistoryRecord is one immutable audit entry.
// Records are never mutated or deleted and are ordered by Seq within an instance.
type HistoryRecord struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	Seq        int64  `json:"seq"`

	// NodeID and NodeName are empty for instance-level records (e.g. withdraw).
	NodeID   string `json:"node_id,omitempty"`
	NodeName string `json:"node_name,omitempty"`

	// ActorID and ActorName are empty for system transitions.
	ActorID   string `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`

	Action    Action    `json:"action"`
	Comment   string    `json:"comment,omitempty"`
	Result    string    `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
