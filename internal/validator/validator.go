// Package validator checks workflow graphs before they are served.
package validator

import (
	"fmt"
	"sort"

	"github.com/aretw0/signoff/pkg/domain"
)

// Validate checks the structural invariants of a workflow and reports every
// violation at once as an *AggregateError of *domain.ConfigError.
//
// Beyond what the engine needs to run, it rejects ambiguous graphs: a
// non-condition node with more than one outgoing connection, or a condition
// node with more than one connection on the same socket.
func Validate(wf *domain.Workflow) error {
	if wf == nil {
		return fmt.Errorf("workflow is nil")
	}

	v := &run{wf: wf}
	v.checkNodes()
	v.checkConnections()
	v.checkExits()
	v.checkConditionLoops()

	if len(v.errs) > 0 {
		return &AggregateError{Errors: v.errs}
	}
	return nil
}

// Unreachable returns the ids of nodes that cannot be reached from the start node.
// They are harmless to the engine and reported as warnings only.
func Unreachable(wf *domain.Workflow) []string {
	starts := wf.StartNodes()
	if len(starts) != 1 {
		return nil
	}

	visited := map[string]bool{}
	queue := []string{starts[0].ID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true
		for _, c := range wf.Outgoing(currentID) {
			if !visited[c.To] {
				queue = append(queue, c.To)
			}
		}
	}

	var out []string
	for _, n := range wf.Nodes {
		if !visited[n.ID] {
			out = append(out, n.ID)
		}
	}
	sort.Strings(out)
	return out
}

type run struct {
	wf   *domain.Workflow
	errs []error
}

func (v *run) fail(nodeID string, err error, detail string) {
	v.errs = append(v.errs, &domain.ConfigError{WorkflowID: v.wf.ID, NodeID: nodeID, Detail: detail, Err: err})
}

func (v *run) checkNodes() {
	if v.wf.ID == "" {
		v.errs = append(v.errs, fmt.Errorf("workflow has no id"))
	}

	seen := map[string]bool{}
	for _, n := range v.wf.Nodes {
		if n.ID == "" {
			v.errs = append(v.errs, fmt.Errorf("workflow %q: node without id", v.wf.ID))
			continue
		}
		if seen[n.ID] {
			v.errs = append(v.errs, fmt.Errorf("workflow %q: duplicate node id %q", v.wf.ID, n.ID))
		}
		seen[n.ID] = true
		if !n.Type.Valid() {
			v.fail(n.ID, domain.ErrUnknownNodeType, string(n.Type))
		}
		if n.Type == domain.NodeTypeParallel || n.Type == domain.NodeTypeSequential {
			v.checkApprovers(&n)
		}
	}

	switch starts := v.wf.StartNodes(); len(starts) {
	case 0:
		v.fail("", domain.ErrNoStartNode, "")
	case 1:
	default:
		v.fail("", domain.ErrMultipleStartNodes, fmt.Sprintf("%d start nodes", len(starts)))
	}
}

func (v *run) checkApprovers(n *domain.Node) {
	listed := map[string]bool{}
	for _, id := range n.Approvers {
		if listed[id] {
			v.fail(n.ID, domain.ErrDuplicateApprover, fmt.Sprintf("approver %q", id))
			continue
		}
		listed[id] = true
	}
}

func (v *run) checkConnections() {
	for _, c := range v.wf.Connections {
		if _, ok := v.wf.Node(c.From); !ok {
			v.fail(c.From, domain.ErrUnknownNode, fmt.Sprintf("connection %s -> %s", c.From, c.To))
		}
		if _, ok := v.wf.Node(c.To); !ok {
			v.fail(c.To, domain.ErrUnknownNode, fmt.Sprintf("connection %s -> %s", c.From, c.To))
		}
	}
}

func (v *run) checkExits() {
	for i := range v.wf.Nodes {
		n := &v.wf.Nodes[i]
		out := v.wf.Outgoing(n.ID)

		switch n.Type {
		case domain.NodeTypeEnd:
			if len(out) > 0 {
				v.fail(n.ID, domain.ErrAmbiguousRoute, "end node has outgoing connections")
			}

		case domain.NodeTypeCondition:
			v.checkCondition(n, out)

		default:
			if len(out) == 0 {
				v.fail(n.ID, domain.ErrNoOutgoing, "")
			} else if len(out) > 1 {
				v.fail(n.ID, domain.ErrAmbiguousRoute, fmt.Sprintf("%d outgoing connections", len(out)))
			}
		}
	}
}

func (v *run) checkCondition(n *domain.Node, out []domain.Connection) {
	perSocket := map[string]int{}
	for _, c := range out {
		perSocket[c.Socket()]++
	}
	for socket, count := range perSocket {
		if count > 1 {
			v.fail(n.ID, domain.ErrAmbiguousRoute, fmt.Sprintf("socket %q has %d connections", socket, count))
		}
	}

	def := domain.DefaultOutput
	if n.Config != nil {
		if n.Config.DefaultOutput != "" {
			def = n.Config.DefaultOutput
		}
		for _, r := range n.Config.Rules {
			if r.Output == "" {
				v.fail(n.ID, domain.ErrNoRouteForSocket, fmt.Sprintf("rule %q has no output socket", r.ID))
				continue
			}
			if perSocket[r.Output] == 0 {
				v.fail(n.ID, domain.ErrNoRouteForSocket, fmt.Sprintf("rule %q socket %q", r.ID, r.Output))
			}
		}
	}
	if perSocket[def] == 0 {
		v.fail(n.ID, domain.ErrNoRouteForSocket, fmt.Sprintf("default socket %q", def))
	}
}

// checkConditionLoops reports cycles made only of automatic nodes,
// which the engine could traverse forever without halting.
func (v *run) checkConditionLoops() {
	automatic := func(id string) bool {
		n, ok := v.wf.Node(id)
		return ok && (n.Type == domain.NodeTypeCondition || n.Type == domain.NodeTypeStart)
	}

	const (
		white = iota
		grey
		black
	)
	color := map[string]int{}

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		for _, c := range v.wf.Outgoing(id) {
			if !automatic(c.To) {
				continue
			}
			switch color[c.To] {
			case grey:
				v.fail(c.To, domain.ErrConditionLoop, fmt.Sprintf("cycle through %s -> %s", id, c.To))
				return true
			case white:
				if visit(c.To) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, n := range v.wf.Nodes {
		if automatic(n.ID) && color[n.ID] == white {
			visit(n.ID)
		}
	}
}
