package dsl

import (
	"fmt"

	"github.com/aretw0/signoff/internal/validator"
	"github.com/aretw0/signoff/pkg/adapters/memory"
	"github.com/aretw0/signoff/pkg/domain"
)

// Builder manages the workflow construction.
// Nodes keep the order in which they were first added.
type Builder struct {
	id    string
	name  string
	order []string
	nodes map[string]*NodeBuilder
	conns []domain.Connection
}

// New creates a new workflow builder.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name of the workflow.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Add creates a new node in the workflow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Start adds the entry node.
func (b *Builder) Start(id string) *NodeBuilder {
	return b.Add(id).Type(domain.NodeTypeStart)
}

// Single adds a node that any one of approvers can sign off.
func (b *Builder) Single(id string, approvers ...string) *NodeBuilder {
	return b.Add(id).Type(domain.NodeTypeSingle).Approvers(approvers...)
}

// Parallel adds a node that every approver must sign off, in any order.
func (b *Builder) Parallel(id string, approvers ...string) *NodeBuilder {
	return b.Add(id).Type(domain.NodeTypeParallel).Approvers(approvers...)
}

// Sequential adds a node that every approver must sign off, in the given order.
func (b *Builder) Sequential(id string, approvers ...string) *NodeBuilder {
	return b.Add(id).Type(domain.NodeTypeSequential).Approvers(approvers...)
}

// Condition adds an automatic routing node.
func (b *Builder) Condition(id string) *NodeBuilder {
	return b.Add(id).Type(domain.NodeTypeCondition)
}

// End adds a sink node.
func (b *Builder) End(id string) *NodeBuilder {
	return b.Add(id).Type(domain.NodeTypeEnd)
}

// Workflow assembles the workflow without validating it.
func (b *Builder) Workflow() *domain.Workflow {
	wf := &domain.Workflow{
		ID:          b.id,
		Name:        b.name,
		Nodes:       make([]domain.Node, 0, len(b.order)),
		Connections: append([]domain.Connection(nil), b.conns...),
	}
	for _, id := range b.order {
		wf.Nodes = append(wf.Nodes, b.nodes[id].node)
	}
	return wf
}

// Build assembles and validates the workflow.
func (b *Builder) Build() (*domain.Workflow, error) {
	wf := b.Workflow()
	if err := validator.Validate(wf); err != nil {
		return nil, fmt.Errorf("invalid workflow %q: %w", b.id, err)
	}
	return wf, nil
}

// Loader builds the workflow into a memory.Loader.
func (b *Builder) Loader() (*memory.Loader, error) {
	wf, err := b.Build()
	if err != nil {
		return nil, err
	}
	return memory.NewLoader(wf)
}
