package http

import (
	"time"

	"github.com/aretw0/signoff/pkg/domain"
)

// ApplyRequest is the body of POST /instances.
type ApplyRequest struct {
	WorkflowID  string         `json:"workflowId"`
	ApplicantID string         `json:"applicantId"`
	Data        map[string]any `json:"data,omitempty"`
	// Initialize enters the first node right away.
	Initialize bool `json:"initialize,omitempty"`
}

// DecisionRequest is the body of POST /instances/{id}/approve.
type DecisionRequest struct {
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName,omitempty"`
	Result    string `json:"result"`
	Comment   string `json:"comment,omitempty"`
}

// WithdrawRequest is the body of POST /instances/{id}/withdraw.
type WithdrawRequest struct {
	ActorID string `json:"actorId"`
	Comment string `json:"comment,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

type OutcomeResponse struct {
	Status   string    `json:"status"`
	NodeID   string    `json:"nodeId"`
	Progress *Progress `json:"progress,omitempty"`
}

type ApproversResponse struct {
	InstanceID string   `json:"instanceId"`
	Approvers  []string `json:"approvers"`
}

type NodeInfoResponse struct {
	InstanceID string    `json:"instanceId"`
	WorkflowID string    `json:"workflowId"`
	Status     string    `json:"status"`
	NodeID     string    `json:"nodeId"`
	NodeName   string    `json:"nodeName"`
	NodeType   string    `json:"nodeType"`
	Approvers  []string  `json:"approvers"`
	Progress   *Progress `json:"progress,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type InstanceResponse struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflowId"`
	ApplicantID   string         `json:"applicantId"`
	Status        string         `json:"status"`
	CurrentNodeID string         `json:"currentNodeId,omitempty"`
	Data          map[string]any `json:"data"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type HistoryRecordResponse struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	NodeID    string    `json:"nodeId,omitempty"`
	NodeName  string    `json:"nodeName,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	ActorName string    `json:"actorName,omitempty"`
	Action    string    `json:"action"`
	Result    string    `json:"result,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is written for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// -- Mapping --

func mapProgress(p *domain.Progress) *Progress {
	if p == nil {
		return nil
	}
	return &Progress{Done: p.Done, Total: p.Total}
}

func mapOutcome(o *domain.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Status:   string(o.Status),
		NodeID:   o.NodeID,
		Progress: mapProgress(o.Progress),
	}
}

func mapNodeInfo(info *domain.NodeInfo) NodeInfoResponse {
	return NodeInfoResponse{
		InstanceID: info.InstanceID,
		WorkflowID: info.WorkflowID,
		Status:     string(info.Status),
		NodeID:     info.NodeID,
		NodeName:   info.NodeName,
		NodeType:   string(info.NodeType),
		Approvers:  info.Approvers,
		Progress:   mapProgress(info.Progress),
		UpdatedAt:  info.UpdatedAt,
	}
}

func mapInstance(inst *domain.Instance) InstanceResponse {
	data := inst.Data
	if data == nil {
		data = map[string]any{}
	}
	return InstanceResponse{
		ID:            inst.ID,
		WorkflowID:    inst.WorkflowID,
		ApplicantID:   inst.ApplicantID,
		Status:        string(inst.Status),
		CurrentNodeID: inst.CurrentNodeID,
		Data:          data,
		CreatedAt:     inst.CreatedAt,
		UpdatedAt:     inst.UpdatedAt,
	}
}

func mapHistory(records []domain.HistoryRecord) []HistoryRecordResponse {
	res := make([]HistoryRecordResponse, len(records))
	for i, r := range records {
		res[i] = HistoryRecordResponse{
			ID:        r.ID,
			Seq:       r.Seq,
			NodeID:    r.NodeID,
			NodeName:  r.NodeName,
			ActorID:   r.ActorID,
			ActorName: r.ActorName,
			Action:    string(r.Action),
			Result:    r.Result,
			Comment:   r.Comment,
			Timestamp: r.Timestamp,
		}
	}
	return res
}
