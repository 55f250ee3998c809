package dto

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expenseYAML = `
id: expense
name: Expense report
nodes:
  - id: start
    type: start
  - id: manager
    type: single
    name: Manager
    approvers: [alice]
  - id: check
    type: condition
    config:
      defaultOutput: out-low
      rules:
        - id: high
          output: out-high
          group:
            logic: AND
            conditions:
              - { field: amount, operator: ">", value: 1000 }
        - id: urgent
          output: out-high
          logic: OR
          conditions:
            - { field: urgent, operator: "==", value: "yes" }
  - id: end
    type: end
connections:
  - { from: start, to: manager }
  - { from: manager, to: check }
  - { from: check, to: end, from_point: out-high }
  - { from: check, to: end, fromPoint: out-low }
`

func TestParseWorkflow_YAML(t *testing.T) {
	wf, err := ParseWorkflow([]byte(expenseYAML))
	require.NoError(t, err)

	assert.Equal(t, "expense", wf.ID)
	assert.Len(t, wf.Nodes, 4)

	manager, ok := wf.Node("manager")
	require.True(t, ok)
	assert.Equal(t, domain.NodeTypeSingle, manager.Type)
	assert.Equal(t, "Manager", manager.Label)
	assert.Equal(t, []string{"alice"}, manager.Approvers)

	check, ok := wf.Node("check")
	require.True(t, ok)
	require.NotNil(t, check.Config)
	assert.Equal(t, "out-low", check.Config.DefaultOutput)
	require.Len(t, check.Config.Rules, 2)
	assert.Equal(t, domain.LogicAnd, check.Config.Rules[0].Group.Logic)
	assert.Equal(t, ">", check.Config.Rules[0].Group.Conditions[0].Operator)
	assert.EqualValues(t, 1000, check.Config.Rules[0].Group.Conditions[0].Value)
	assert.Equal(t, domain.LogicOr, check.Config.Rules[1].Group.Logic, "flat rule keys are accepted")

	assert.Equal(t, "out-high", wf.Connections[2].FromPoint)
	assert.Equal(t, "out-low", wf.Connections[3].FromPoint, "camelCase socket key is accepted")
}

func TestParseWorkflow_JSON(t *testing.T) {
	wf := &domain.Workflow{
		ID:          "tiny",
		Nodes:       []domain.Node{{ID: "start", Type: domain.NodeTypeStart}, {ID: "end", Type: domain.NodeTypeEnd}},
		Connections: []domain.Connection{{From: "start", To: "end"}},
	}
	data, err := json.Marshal(wf)
	require.NoError(t, err)

	parsed, err := ParseWorkflow(data)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, parsed.ID)
	assert.Equal(t, wf.Connections, parsed.Connections)
}

func TestParseWorkflow_Invalid(t *testing.T) {
	_, err := ParseWorkflow([]byte("nodes: [unterminated"))
	assert.Error(t, err)

	_, err = ParseWorkflow([]byte(""))
	assert.Error(t, err)

	_, err = ParseWorkflow([]byte("nodes: 12"))
	assert.Error(t, err)
}

func TestUnmarshalInstance_KeepsNumbers(t *testing.T) {
	inst, err := UnmarshalInstance([]byte(`{"id":"i1","status":"pending","data":{"amount":9007199254740993}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), inst.Data["amount"])

	inst, err = UnmarshalInstance([]byte(`{"id":"i2"}`))
	require.NoError(t, err)
	assert.NotNil(t, inst.Data)
}
