package domain

import (
	"strings"
	"time"
)

// Decision is one sign-off action submitted by an actor.
type Decision struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Result    string `json:"result"`
}

// NormalizedResult returns Result lowercased and trimmed.
func (d Decision) NormalizedResult() string {
	return strings.ToLower(strings.TrimSpace(d.Result))
}

// Outcome is the state of an instance after a decision was applied.
type Outcome struct {
	Status Status `json:"status"`
	NodeID string `json:"node_id"`
	// Progress is set only while a parallel or sequential gate is partially satisfied.
	Progress *Progress `json:"progress,omitempty"`
}

// NodeInfo is a display snapshot of the node an instance is waiting at.
type NodeInfo struct {
	InstanceID string    `json:"instance_id"`
	WorkflowID string    `json:"workflow_id"`
	Status     Status    `json:"status"`
	NodeID     string    `json:"node_id"`
	NodeName   string    `json:"node_name"`
	NodeType   NodeType  `json:"node_type"`
	Approvers  []string  `json:"approvers"`
	Progress   *Progress `json:"progress,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
