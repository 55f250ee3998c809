package dsl

import "github.com/aretw0/signoff/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Type sets the node type.
func (n *NodeBuilder) Type(t domain.NodeType) *NodeBuilder {
	n.node.Type = t
	return n
}

// Label sets the display label.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// Approvers replaces the approver list.
func (n *NodeBuilder) Approvers(ids ...string) *NodeBuilder {
	n.node.Approvers = append([]string(nil), ids...)
	return n
}

// Go adds a connection from the default socket to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.conns = append(n.builder.conns, domain.Connection{From: n.node.ID, To: target})
	return n
}

// On adds a connection from a named socket to the target node.
func (n *NodeBuilder) On(socket, target string) *NodeBuilder {
	n.builder.conns = append(n.builder.conns, domain.Connection{From: n.node.ID, To: target, FromPoint: socket})
	return n
}

// Rule appends a routing rule. Rules are evaluated in the order they are added.
func (n *NodeBuilder) Rule(id, output string, group domain.ConditionGroup) *NodeBuilder {
	cfg := n.config()
	cfg.Rules = append(cfg.Rules, domain.Rule{ID: id, Output: output, Group: group})
	return n
}

// Default sets the socket followed when no rule matches.
func (n *NodeBuilder) Default(output string) *NodeBuilder {
	n.config().DefaultOutput = output
	return n
}

func (n *NodeBuilder) config() *domain.ConditionConfig {
	if n.node.Config == nil {
		n.node.Config = &domain.ConditionConfig{}
	}
	return n.node.Config
}

// Cond builds a single comparison.
func Cond(field, operator string, value any) domain.Condition {
	return domain.Condition{Field: field, Operator: operator, Value: value}
}

// And groups conditions that must all hold.
func And(conds ...domain.Condition) domain.ConditionGroup {
	return domain.ConditionGroup{Logic: domain.LogicAnd, Conditions: conds}
}

// Or groups conditions of which one must hold.
func Or(conds ...domain.Condition) domain.ConditionGroup {
	return domain.ConditionGroup{Logic: domain.LogicOr, Conditions: conds}
}
