package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/signoff/pkg/domain"
)

// CurrentApprovers returns the actors allowed to act right now.
// A closed instance has none.
func (e *Engine) CurrentApprovers(ctx context.Context, instanceID string) ([]string, error) {
	inst, wf, err := e.load(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status.IsTerminal() {
		return []string{}, nil
	}
	node, err := currentNode(inst, wf)
	if err != nil {
		return nil, err
	}
	return Approvers(inst, node), nil
}

// CurrentNodeInfo returns a display snapshot of the current node. It never mutates the instance.
func (e *Engine) CurrentNodeInfo(ctx context.Context, instanceID string) (*domain.NodeInfo, error) {
	inst, wf, err := e.load(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	node, err := currentNode(inst, wf)
	if err != nil {
		return nil, err
	}

	info := &domain.NodeInfo{
		InstanceID: inst.ID,
		WorkflowID: inst.WorkflowID,
		Status:     inst.Status,
		NodeID:     node.ID,
		NodeName:   node.Name(),
		NodeType:   node.Type,
		Approvers:  []string{},
		UpdatedAt:  inst.UpdatedAt,
	}
	if !inst.Status.IsTerminal() {
		info.Approvers = Approvers(inst, node)
		info.Progress = Progress(inst, node)
	}
	return info, nil
}

func currentNode(inst *domain.Instance, wf *domain.Workflow) (*domain.Node, error) {
	if inst.CurrentNodeID == "" {
		return nil, fmt.Errorf("instance %s: %w", inst.ID, domain.ErrNotInitialized)
	}
	node, ok := wf.Node(inst.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("instance %s node %q: %w", inst.ID, inst.CurrentNodeID, domain.ErrCurrentNodeMissing)
	}
	return node, nil
}

// Approvers computes who may act at node given the gate state held by inst.
// The full list is returned for a single node or an untouched parallel node,
// the remaining subset for a parallel node in progress and the current turn
// for a sequential node.
func Approvers(inst *domain.Instance, node *domain.Node) []string {
	switch node.Type {
	case domain.NodeTypeSingle:
		return slices.Clone(node.Approvers)

	case domain.NodeTypeParallel:
		gate, ok := inst.Parallel[node.ID]
		if !ok {
			return distinct(node.Approvers)
		}
		remaining := []string{}
		for _, id := range distinct(node.Approvers) {
			if !gate.Has(id) {
				remaining = append(remaining, id)
			}
		}
		return remaining

	case domain.NodeTypeSequential:
		if gate, ok := inst.Sequential[node.ID]; ok {
			if turn, ok := gate.Turn(); ok {
				return []string{turn}
			}
			return []string{}
		}
		if len(node.Approvers) > 0 {
			return []string{node.Approvers[0]}
		}
		return []string{}
	}
	return []string{}
}

// Progress reports gate completion at node, or nil for nodes without a gate.
func Progress(inst *domain.Instance, node *domain.Node) *domain.Progress {
	switch node.Type {
	case domain.NodeTypeParallel:
		if gate, ok := inst.Parallel[node.ID]; ok {
			return &domain.Progress{Done: len(gate.Approved), Total: gate.Required}
		}
		return &domain.Progress{Done: 0, Total: len(distinct(node.Approvers))}
	case domain.NodeTypeSequential:
		if gate, ok := inst.Sequential[node.ID]; ok {
			return &domain.Progress{Done: gate.Index, Total: len(gate.Approvers)}
		}
		return &domain.Progress{Done: 0, Total: len(node.Approvers)}
	}
	return nil
}
