package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/signoff/pkg/domain"
)

// Approve applies one sign-off decision at the current node of an instance.
//
// A reject closes the instance wherever it stands. An approve is dispatched on
// the node type: single advances immediately, parallel and sequential advance
// once their gate is satisfied. Exactly one actor record is written per call;
// automatic routing it triggers appends its own records after it.
func (e *Engine) Approve(ctx context.Context, instanceID string, d domain.Decision) (*domain.Outcome, error) {
	result := d.NormalizedResult()
	if result != domain.ResultApprove && result != domain.ResultReject {
		return nil, fmt.Errorf("%w: got %q", domain.ErrInvalidResult, d.Result)
	}

	inst, wf, err := e.load(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status.IsTerminal() {
		return nil, fmt.Errorf("instance %s is %s: %w", inst.ID, inst.Status, domain.ErrInstanceClosed)
	}
	if inst.CurrentNodeID == "" {
		return nil, fmt.Errorf("instance %s: %w", inst.ID, domain.ErrNotInitialized)
	}
	node, ok := wf.Node(inst.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("instance %s node %q: %w", inst.ID, inst.CurrentNodeID, domain.ErrCurrentNodeMissing)
	}

	s := e.newStep(wf, inst)
	if err := s.authorize(node, d.ActorID, result); err != nil {
		return nil, err
	}

	out := &domain.Outcome{}
	if result == domain.ResultReject {
		s.inst.ClearGate(node.ID)
		s.inst.Status = domain.StatusRejected
		s.record(node, d.ActorID, d.ActorName, domain.ActionReject, d.Comment, domain.ResultReject)
	} else {
		out.Progress, err = s.approve(node, d)
		if err != nil {
			return nil, err
		}
	}
	s.decisionEvent(node, d)

	if err := e.commit(ctx, s); err != nil {
		return nil, err
	}

	out.Status = s.inst.Status
	out.NodeID = s.inst.CurrentNodeID
	e.logger.Info("decision applied",
		"instance_id", inst.ID,
		"node_id", node.ID,
		"actor_id", d.ActorID,
		"result", result,
		"status", out.Status,
		"current", out.NodeID,
	)
	return out, nil
}

// authorize checks that actorID may act at node right now.
// An empty approver list admits anyone. A reject only needs membership; the
// sequential turn order applies to approvals.
func (s *step) authorize(node *domain.Node, actorID, result string) error {
	switch node.Type {
	case domain.NodeTypeSingle, domain.NodeTypeParallel:
		return member(node, node.Approvers, actorID)

	case domain.NodeTypeSequential:
		if result == domain.ResultReject {
			approvers := node.Approvers
			if gate, ok := s.inst.Sequential[node.ID]; ok {
				approvers = gate.Approvers
			}
			return member(node, approvers, actorID)
		}
		gate := s.inst.SequentialGate(node.ID, node.Approvers)
		expected, ok := gate.Turn()
		if ok && expected != actorID {
			return &domain.TurnError{NodeID: node.ID, Actor: actorID, Expected: expected}
		}
		return nil

	case domain.NodeTypeStart, domain.NodeTypeCondition, domain.NodeTypeEnd:
		return fmt.Errorf("node %q is %s: %w", node.ID, node.Type, domain.ErrNotAGate)

	default:
		return s.configError(node.ID, domain.ErrUnknownNodeType, string(node.Type))
	}
}

func member(node *domain.Node, approvers []string, actorID string) error {
	if len(approvers) > 0 && !slices.Contains(approvers, actorID) {
		return fmt.Errorf("node %q actor %q: %w", node.ID, actorID, domain.ErrNotApprover)
	}
	return nil
}

// distinct returns approvers without repeats, keeping first occurrences.
func distinct(approvers []string) []string {
	out := make([]string, 0, len(approvers))
	for _, id := range approvers {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// approve records the approval and advances when the node's gate is satisfied.
// It returns the gate progress while the instance stays at node.
func (s *step) approve(node *domain.Node, d domain.Decision) (*domain.Progress, error) {
	s.record(node, d.ActorID, d.ActorName, domain.ActionApprove, d.Comment, domain.ResultApprove)

	switch node.Type {
	case domain.NodeTypeSingle:
		return nil, s.moveToNextNode(node, 0)

	case domain.NodeTypeParallel:
		gate := s.inst.ParallelGate(node.ID, len(distinct(node.Approvers)))
		if !gate.Has(d.ActorID) {
			gate.Approved = append(gate.Approved, d.ActorID)
		}
		if gate.Done() {
			return nil, s.moveToNextNode(node, 0)
		}
		return &domain.Progress{Done: len(gate.Approved), Total: gate.Required}, nil

	case domain.NodeTypeSequential:
		gate := s.inst.SequentialGate(node.ID, node.Approvers)
		gate.Index++
		if gate.Index >= len(gate.Approvers) {
			return nil, s.moveToNextNode(node, 0)
		}
		return &domain.Progress{Done: gate.Index, Total: len(gate.Approvers)}, nil

	default:
		// authorize already rejected every other type.
		return nil, fmt.Errorf("node %q is %s: %w", node.ID, node.Type, domain.ErrNotAGate)
	}
}
