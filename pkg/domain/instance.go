package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn" // Set externally, never by the engine
)

// IsTerminal reports whether no further sign-off is possible.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusWithdrawn
}

// ParallelGate tracks an all-of sign-off in progress.
type ParallelGate struct {
	Approved []string `json:"approved"`
	Required int      `json:"required"`
}

// Has reports whether actorID already signed off.
func (g *ParallelGate) Has(actorID string) bool {
	for _, id := range g.Approved {
		if id == actorID {
			return true
		}
	}
	return false
}

// Done reports whether enough approvals were collected.
func (g *ParallelGate) Done() bool {
	return len(g.Approved) >= g.Required
}

// SequentialGate tracks an in-order sign-off in progress.
// Approvers is a snapshot taken on the first action at the node, so later edits
// to the node definition do not affect an in-flight sequence.
type SequentialGate struct {
	Index     int      `json:"index"`
	Approvers []string `json:"approvers"`
}

// Turn returns the actor whose sign-off is expected next.
func (g *SequentialGate) Turn() (string, bool) {
	if g.Index < 0 || g.Index >= len(g.Approvers) {
		return "", false
	}
	return g.Approvers[g.Index], true
}

// Instance is one submission traversing a workflow.
type Instance struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	ApplicantID   string         `json:"applicant_id"`
	Data          map[string]any `json:"data"`
	Status        Status         `json:"status"`
	CurrentNodeID string         `json:"current_node_id"`

	// Gate state, keyed by node id. An entry only exists while its node is current.
	Parallel   map[string]*ParallelGate   `json:"parallel,omitempty"`
	Sequential map[string]*SequentialGate `json:"sequential,omitempty"`

	// HistorySeq is the sequence number of the last history record written for this instance.
	HistorySeq int64 `json:"history_seq"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInstance creates an instance that has been applied but not yet initialized.
func NewInstance(id, workflowID, applicantID string, data map[string]any) *Instance {
	if data == nil {
		data = make(map[string]any)
	}
	return &Instance{
		ID:          id,
		WorkflowID:  workflowID,
		ApplicantID: applicantID,
		Data:        data,
		Status:      StatusPending,
	}
}

// NextSeq reserves the next history sequence number.
func (i *Instance) NextSeq() int64 {
	i.HistorySeq++
	return i.HistorySeq
}

// ParallelGate returns the gate for nodeID, creating it on first use.
func (i *Instance) ParallelGate(nodeID string, required int) *ParallelGate {
	if i.Parallel == nil {
		i.Parallel = make(map[string]*ParallelGate)
	}
	g, ok := i.Parallel[nodeID]
	if !ok {
		g = &ParallelGate{Approved: []string{}, Required: required}
		i.Parallel[nodeID] = g
	}
	return g
}

// SequentialGate returns the gate for nodeID, snapshotting approvers on first use.
func (i *Instance) SequentialGate(nodeID string, approvers []string) *SequentialGate {
	if i.Sequential == nil {
		i.Sequential = make(map[string]*SequentialGate)
	}
	g, ok := i.Sequential[nodeID]
	if !ok {
		snapshot := make([]string, len(approvers))
		copy(snapshot, approvers)
		g = &SequentialGate{Index: 0, Approvers: snapshot}
		i.Sequential[nodeID] = g
	}
	return g
}

// ClearGate tears down any gate state held for nodeID.
func (i *Instance) ClearGate(nodeID string) {
	delete(i.Parallel, nodeID)
	delete(i.Sequential, nodeID)
	if len(i.Parallel) == 0 {
		i.Parallel = nil
	}
	if len(i.Sequential) == 0 {
		i.Sequential = nil
	}
}

// Clone returns a deep copy safe for speculative mutation.
// Values inside Data are copied shallowly.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	next := *i
	next.Data = make(map[string]any, len(i.Data))
	for k, v := range i.Data {
		next.Data[k] = v
	}
	if i.Parallel != nil {
		next.Parallel = make(map[string]*ParallelGate, len(i.Parallel))
		for k, g := range i.Parallel {
			approved := make([]string, len(g.Approved))
			copy(approved, g.Approved)
			next.Parallel[k] = &ParallelGate{Approved: approved, Required: g.Required}
		}
	}
	if i.Sequential != nil {
		next.Sequential = make(map[string]*SequentialGate, len(i.Sequential))
		for k, g := range i.Sequential {
			approvers := make([]string, len(g.Approvers))
			copy(approvers, g.Approvers)
			next.Sequential[k] = &SequentialGate{Index: g.Index, Approvers: approvers}
		}
	}
	return &next
}

// Progress describes partial completion of a gate, e.g. 1/3.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Done, p.Total)
}
