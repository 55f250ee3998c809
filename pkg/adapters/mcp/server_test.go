package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/dsl"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	b := dsl.New("expense")
	b.Start("start").Go("manager")
	b.Single("manager", "alice").Go("board")
	b.Sequential("board", "bob", "carol").Go("end")
	b.End("end")
	loader, err := b.Loader()
	require.NoError(t, err)

	eng, err := signoff.New(loader)
	require.NoError(t, err)
	return NewServer(eng, "test")
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), target))
}

func applyInstance(t *testing.T, s *Server) domain.Instance {
	t.Helper()
	result, err := s.handleApply(context.Background(), buildRequest("apply", map[string]any{
		"workflow_id":  "expense",
		"applicant_id": "zoe",
		"data":         map[string]any{"amount": 120},
		"initialize":   true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var inst domain.Instance
	unmarshalResult(t, result, &inst)
	return inst
}

func TestApplyTool(t *testing.T) {
	s := newTestServer(t)
	inst := applyInstance(t, s)

	assert.Equal(t, "expense", inst.WorkflowID)
	assert.Equal(t, domain.StatusPending, inst.Status)
	assert.Equal(t, "manager", inst.CurrentNodeID)
	assert.NotNil(t, inst.Data["amount"])
}

func TestApplyToolMissingArgs(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleApply(context.Background(), buildRequest("apply", map[string]any{"workflow_id": "expense"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestApproveFlowTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	inst := applyInstance(t, s)

	approve := func(actor string) *mcp.CallToolResult {
		result, err := s.handleApprove(ctx, buildRequest("approve", map[string]any{
			"instance_id": inst.ID,
			"actor_id":    actor,
			"result":      "approve",
		}))
		require.NoError(t, err)
		return result
	}

	result := approve("alice")
	require.False(t, result.IsError, extractText(t, result))
	var out domain.Outcome
	unmarshalResult(t, result, &out)
	assert.Equal(t, "board", out.NodeID)

	// Out of turn.
	result = approve("carol")
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "not this approver's turn")

	result, err := s.handleApprovers(ctx, buildRequest("approvers", map[string]any{"instance_id": inst.ID}))
	require.NoError(t, err)
	var approvers struct {
		Approvers []string `json:"approvers"`
	}
	unmarshalResult(t, result, &approvers)
	assert.Equal(t, []string{"bob"}, approvers.Approvers)

	result = approve("bob")
	require.False(t, result.IsError)

	result, err = s.handleNodeInfo(ctx, buildRequest("node_info", map[string]any{"instance_id": inst.ID}))
	require.NoError(t, err)
	var info domain.NodeInfo
	unmarshalResult(t, result, &info)
	assert.Equal(t, domain.NodeTypeSequential, info.NodeType)
	require.NotNil(t, info.Progress)
	assert.Equal(t, domain.Progress{Done: 1, Total: 2}, *info.Progress)

	result = approve("carol")
	unmarshalResult(t, result, &out)
	assert.Equal(t, domain.StatusApproved, out.Status)

	result, err = s.handleHistory(ctx, buildRequest("history", map[string]any{"instance_id": inst.ID}))
	require.NoError(t, err)
	var history struct {
		Records []domain.HistoryRecord `json:"records"`
	}
	unmarshalResult(t, result, &history)
	require.NotEmpty(t, history.Records)
	assert.Equal(t, domain.ActionComplete, history.Records[len(history.Records)-1].Action)
}

func TestHistoryToolUnknownInstance(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleHistory(context.Background(), buildRequest("history", map[string]any{"instance_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "instance not found")
}

func TestGraphTool(t *testing.T) {
	s := newTestServer(t)
	inst := applyInstance(t, s)

	result, err := s.handleGraph(context.Background(), buildRequest("graph", map[string]any{
		"workflow_id": "expense",
		"instance_id": inst.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := extractText(t, result)
	assert.Contains(t, text, "graph TD")
	assert.Contains(t, text, "class manager current;")
}

func TestInitializeToolTwice(t *testing.T) {
	s := newTestServer(t)
	inst := applyInstance(t, s)

	result, err := s.handleInitialize(context.Background(), buildRequest("initialize", map[string]any{"instance_id": inst.ID}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
