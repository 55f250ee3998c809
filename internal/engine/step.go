package engine

import (
	"context"
	"fmt"

	"github.com/aretw0/signoff/pkg/domain"
)

// step accumulates one logical transition: the mutated instance copy, the
// history records it produced and the hook events to fire once persisted.
type step struct {
	e       *Engine
	wf      *domain.Workflow
	inst    *domain.Instance
	records []domain.HistoryRecord
	events  []func(context.Context)
}

func (e *Engine) newStep(wf *domain.Workflow, inst *domain.Instance) *step {
	return &step{e: e, wf: wf, inst: inst.Clone()}
}

// record reserves the next sequence number and queues a history record.
func (s *step) record(node *domain.Node, actorID, actorName string, action domain.Action, comment, result string) {
	rec := domain.HistoryRecord{
		ID:         s.e.newID(),
		InstanceID: s.inst.ID,
		Seq:        s.inst.NextSeq(),
		ActorID:    actorID,
		ActorName:  actorName,
		Action:     action,
		Comment:    comment,
		Result:     result,
		Timestamp:  s.e.now(),
	}
	if node != nil {
		rec.NodeID = node.ID
		rec.NodeName = node.Name()
	}
	s.records = append(s.records, rec)
}

func (s *step) nodeEvent(typ domain.EventType, node *domain.Node) {
	var hook func(context.Context, *domain.NodeEvent)
	switch typ {
	case domain.EventNodeEnter:
		hook = s.e.hooks.OnNodeEnter
	case domain.EventNodeLeave:
		hook = s.e.hooks.OnNodeLeave
	}
	if hook == nil {
		return
	}
	ev := &domain.NodeEvent{
		EventBase: s.eventBase(typ),
		NodeID:    node.ID,
		NodeType:  node.Type,
	}
	s.events = append(s.events, func(ctx context.Context) { hook(ctx, ev) })
}

func (s *step) decisionEvent(node *domain.Node, d domain.Decision) {
	hook := s.e.hooks.OnDecision
	if hook == nil {
		return
	}
	ev := &domain.DecisionEvent{
		EventBase: s.eventBase(domain.EventDecision),
		NodeID:    node.ID,
		ActorID:   d.ActorID,
		Result:    d.NormalizedResult(),
	}
	// Status is read at flush time so it reflects the whole transition.
	s.events = append(s.events, func(ctx context.Context) {
		ev.Status = s.inst.Status
		hook(ctx, ev)
	})
}

func (s *step) eventBase(typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  s.e.now(),
		Type:       typ,
		InstanceID: s.inst.ID,
		WorkflowID: s.inst.WorkflowID,
	}
}

func (s *step) flushEvents(ctx context.Context) {
	for _, fire := range s.events {
		fire(ctx)
	}
	s.events = nil
}

func (s *step) configError(nodeID string, err error, detail string) error {
	return &domain.ConfigError{WorkflowID: s.wf.ID, NodeID: nodeID, Detail: detail, Err: err}
}

// moveToNextNode leaves node through its single exit and enters the target.
func (s *step) moveToNextNode(node *domain.Node, hops int) error {
	out := s.wf.Outgoing(node.ID)
	if len(out) == 0 {
		return s.configError(node.ID, domain.ErrNoOutgoing, "")
	}
	if len(out) > 1 {
		s.e.logger.Warn("node has several outgoing connections, following the first",
			"workflow_id", s.wf.ID,
			"node_id", node.ID,
			"count", len(out),
		)
	}

	s.inst.ClearGate(node.ID)
	s.nodeEvent(domain.EventNodeLeave, node)
	return s.enter(out[0].To, hops)
}

// enter makes nodeID current. Gates halt and wait for sign-off; condition
// and start nodes route onward immediately; end approves the instance.
func (s *step) enter(nodeID string, hops int) error {
	node, ok := s.wf.Node(nodeID)
	if !ok {
		return s.configError(nodeID, domain.ErrUnknownNode, "")
	}

	switch node.Type {
	case domain.NodeTypeSingle, domain.NodeTypeParallel, domain.NodeTypeSequential:
		s.inst.CurrentNodeID = node.ID
		s.inst.ClearGate(node.ID)
		s.nodeEvent(domain.EventNodeEnter, node)
		return nil

	case domain.NodeTypeCondition:
		if hops >= maxConditionHops {
			return s.configError(node.ID, domain.ErrConditionLoop, fmt.Sprintf("exceeded %d automatic hops", maxConditionHops))
		}
		s.nodeEvent(domain.EventNodeEnter, node)
		return s.route(node, hops+1)

	case domain.NodeTypeEnd:
		s.inst.CurrentNodeID = node.ID
		s.inst.Status = domain.StatusApproved
		s.nodeEvent(domain.EventNodeEnter, node)
		s.record(node, "", "", domain.ActionComplete, "", string(domain.StatusApproved))
		return nil

	case domain.NodeTypeStart:
		// A connection back to start restarts the graph without a new submit.
		if hops >= maxConditionHops {
			return s.configError(node.ID, domain.ErrConditionLoop, fmt.Sprintf("exceeded %d automatic hops", maxConditionHops))
		}
		s.nodeEvent(domain.EventNodeEnter, node)
		return s.moveToNextNode(node, hops+1)

	default:
		return s.configError(node.ID, domain.ErrUnknownNodeType, string(node.Type))
	}
}

// route evaluates the rules of a condition node and follows the chosen socket.
func (s *step) route(node *domain.Node, hops int) error {
	socket := domain.DefaultOutput
	var rules []domain.Rule
	if node.Config != nil {
		rules = node.Config.Rules
		if node.Config.DefaultOutput != "" {
			socket = node.Config.DefaultOutput
		}
	}

	ruleID := ""
	if rule, ok := s.e.evaluator.EvaluateRules(s.inst.Data, rules); ok {
		socket = rule.Output
		ruleID = rule.ID
	}

	conn, ok := s.wf.Follow(node.ID, socket)
	if !ok {
		return s.configError(node.ID, domain.ErrNoRouteForSocket, fmt.Sprintf("socket %q", socket))
	}

	s.e.logger.Debug("condition routed",
		"instance_id", s.inst.ID,
		"node_id", node.ID,
		"rule_id", ruleID,
		"socket", socket,
		"to", conn.To,
	)
	s.record(node, "", "", domain.ActionCondition, "", socket)
	s.nodeEvent(domain.EventNodeLeave, node)
	return s.enter(conn.To, hops)
}
