package validator

import (
	"errors"
	"testing"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, typ domain.NodeType) domain.Node {
	return domain.Node{ID: id, Type: typ}
}

func conn(from, to, socket string) domain.Connection {
	return domain.Connection{From: from, To: to, FromPoint: socket}
}

func validWorkflow() *domain.Workflow {
	cond := node("check", domain.NodeTypeCondition)
	cond.Config = &domain.ConditionConfig{
		Rules: []domain.Rule{{ID: "high", Output: "out-high", Group: domain.ConditionGroup{
			Logic:      domain.LogicAnd,
			Conditions: []domain.Condition{{Field: "amount", Operator: ">", Value: 1000}},
		}}},
		DefaultOutput: "out-low",
	}
	return &domain.Workflow{
		ID: "wf",
		Nodes: []domain.Node{
			node("start", domain.NodeTypeStart),
			{ID: "review", Type: domain.NodeTypeSingle, Approvers: []string{"alice"}},
			cond,
			node("end", domain.NodeTypeEnd),
		},
		Connections: []domain.Connection{
			conn("start", "review", ""),
			conn("review", "check", ""),
			conn("check", "end", "out-high"),
			conn("check", "end", "out-low"),
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validWorkflow()))
	assert.Empty(t, Unreachable(validWorkflow()))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(wf *domain.Workflow)
		want   error
	}{
		{"no start node", func(wf *domain.Workflow) {
			wf.Nodes[0].Type = domain.NodeTypeSingle
		}, domain.ErrNoStartNode},
		{"two start nodes", func(wf *domain.Workflow) {
			wf.Nodes = append(wf.Nodes, node("start2", domain.NodeTypeStart))
			wf.Connections = append(wf.Connections, conn("start2", "review", ""))
		}, domain.ErrMultipleStartNodes},
		{"gate without exit", func(wf *domain.Workflow) {
			wf.Connections = wf.Connections[:1]
		}, domain.ErrNoOutgoing},
		{"dangling connection", func(wf *domain.Workflow) {
			wf.Connections[0].To = "ghost"
		}, domain.ErrUnknownNode},
		{"gate with two exits", func(wf *domain.Workflow) {
			wf.Connections = append(wf.Connections, conn("review", "end", ""))
		}, domain.ErrAmbiguousRoute},
		{"duplicate condition socket", func(wf *domain.Workflow) {
			wf.Connections = append(wf.Connections, conn("check", "review", "out-high"))
		}, domain.ErrAmbiguousRoute},
		{"default socket without edge", func(wf *domain.Workflow) {
			wf.Connections = wf.Connections[:3]
		}, domain.ErrNoRouteForSocket},
		{"unknown node type", func(wf *domain.Workflow) {
			wf.Nodes[1].Type = "fork"
		}, domain.ErrUnknownNodeType},
		{"condition loop", func(wf *domain.Workflow) {
			wf.Connections[2] = conn("check", "check", "out-high")
		}, domain.ErrConditionLoop},
		{"parallel approver listed twice", func(wf *domain.Workflow) {
			wf.Nodes[1].Type = domain.NodeTypeParallel
			wf.Nodes[1].Approvers = []string{"a", "a", "b"}
		}, domain.ErrDuplicateApprover},
		{"sequential approver listed twice", func(wf *domain.Workflow) {
			wf.Nodes[1].Type = domain.NodeTypeSequential
			wf.Nodes[1].Approvers = []string{"a", "b", "a"}
		}, domain.ErrDuplicateApprover},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := validWorkflow()
			tt.mutate(wf)

			err := Validate(wf)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domain.IsConfigError(err))
			assert.NotEmpty(t, ValidationErrors(err))
		})
	}
}

func TestValidate_ReportsEverything(t *testing.T) {
	wf := validWorkflow()
	wf.Nodes[0].Type = domain.NodeTypeSingle // no start
	wf.Connections = wf.Connections[:3]      // missing default route

	err := Validate(wf)
	require.Error(t, err)
	errs := ValidationErrors(err)
	assert.GreaterOrEqual(t, len(errs), 2)
	assert.True(t, errors.Is(err, domain.ErrNoStartNode))
	assert.True(t, errors.Is(err, domain.ErrNoRouteForSocket))
	assert.Contains(t, err.Error(), "validation errors")
}

func TestUnreachable(t *testing.T) {
	wf := validWorkflow()
	wf.Nodes = append(wf.Nodes, domain.Node{ID: "orphan", Type: domain.NodeTypeSingle})
	wf.Connections = append(wf.Connections, conn("orphan", "end", ""))

	assert.NoError(t, Validate(wf))
	assert.Equal(t, []string{"orphan"}, Unreachable(wf))
}
