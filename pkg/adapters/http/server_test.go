package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/signoff"
	api "github.com/aretw0/signoff/pkg/adapters/http"
	"github.com/aretw0/signoff/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *signoff.Engine {
	t.Helper()

	b := dsl.New("expense")
	b.Start("start").Go("manager")
	b.Single("manager", "alice").Go("amount")
	b.Condition("amount").
		Rule("high", "out-high", dsl.And(dsl.Cond("amount", ">", 1000))).
		Default("out-low").
		On("out-high", "finance").
		On("out-low", "end")
	b.Parallel("finance", "bob", "carol").Go("end")
	b.End("end")

	broken := dsl.New("broken")
	broken.Start("start").Go("review")
	broken.Single("review", "alice")

	loader, err := b.Loader()
	require.NoError(t, err)
	require.NoError(t, loader.Put(broken.Workflow()))

	eng, err := signoff.New(loader)
	require.NoError(t, err)
	return eng
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func apply(t *testing.T, h http.Handler, workflowID string, data map[string]any) api.InstanceResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/instances", api.ApplyRequest{
		WorkflowID:  workflowID,
		ApplicantID: "zoe",
		Data:        data,
		Initialize:  true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.InstanceResponse](t, w)
}

func TestHealth(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))
	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestApprovalFlow(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))

	inst := apply(t, h, "expense", map[string]any{"amount": 5000})
	assert.Equal(t, "pending", inst.Status)
	assert.Equal(t, "manager", inst.CurrentNodeID)

	w := do(t, h, http.MethodGet, "/instances/"+inst.ID+"/approvers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"alice"}, decode[api.ApproversResponse](t, w).Approvers)

	w = do(t, h, http.MethodPost, "/instances/"+inst.ID+"/approve", api.DecisionRequest{ActorID: "alice", Result: "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[api.OutcomeResponse](t, w)
	assert.Equal(t, "pending", out.Status)
	assert.Equal(t, "finance", out.NodeID)
	assert.Nil(t, out.Progress)

	w = do(t, h, http.MethodPost, "/instances/"+inst.ID+"/approve", api.DecisionRequest{ActorID: "bob", Result: "approve"})
	require.Equal(t, http.StatusOK, w.Code)
	out = decode[api.OutcomeResponse](t, w)
	require.NotNil(t, out.Progress)
	assert.Equal(t, api.Progress{Done: 1, Total: 2}, *out.Progress)

	w = do(t, h, http.MethodGet, "/instances/"+inst.ID+"/node", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[api.NodeInfoResponse](t, w)
	assert.Equal(t, "parallel", info.NodeType)
	assert.Equal(t, []string{"carol"}, info.Approvers)

	w = do(t, h, http.MethodPost, "/instances/"+inst.ID+"/approve", api.DecisionRequest{ActorID: "carol", Result: "APPROVE"})
	require.Equal(t, http.StatusOK, w.Code)
	out = decode[api.OutcomeResponse](t, w)
	assert.Equal(t, "approved", out.Status)
	assert.Equal(t, "end", out.NodeID)

	w = do(t, h, http.MethodGet, "/instances/"+inst.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]api.HistoryRecordResponse](t, w)
	actions := make([]string, len(history))
	for i, rec := range history {
		actions[i] = rec.Action
	}
	assert.Equal(t, []string{"submit", "approve", "condition", "approve", "approve", "complete"}, actions)
}

func TestErrorMapping(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))
	inst := apply(t, h, "expense", map[string]any{"amount": 10})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown instance", http.MethodGet, "/instances/nope/node", nil, http.StatusNotFound, "instance_not_found"},
		{"unknown workflow", http.MethodGet, "/workflows/nope/graph", nil, http.StatusNotFound, "workflow_not_found"},
		{"history of unknown instance", http.MethodGet, "/instances/nope/history", nil, http.StatusNotFound, "instance_not_found"},
		{"not an approver", http.MethodPost, "/instances/" + inst.ID + "/approve", api.DecisionRequest{ActorID: "mallory", Result: "approve"}, http.StatusForbidden, "not_approver"},
		{"invalid result", http.MethodPost, "/instances/" + inst.ID + "/approve", api.DecisionRequest{ActorID: "alice", Result: "maybe"}, http.StatusBadRequest, "invalid_result"},
		{"missing actor", http.MethodPost, "/instances/" + inst.ID + "/approve", api.DecisionRequest{Result: "approve"}, http.StatusBadRequest, "bad_request"},
		{"initialize twice", http.MethodPost, "/instances/" + inst.ID + "/initialize", nil, http.StatusConflict, "already_initialized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[api.ErrorResponse](t, w).Code)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/instances/"+inst.ID+"/approve", strings.NewReader("{"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("closed instance", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/instances/"+inst.ID+"/approve", api.DecisionRequest{ActorID: "alice", Result: "reject"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "rejected", decode[api.OutcomeResponse](t, w).Status)

		w = do(t, h, http.MethodPost, "/instances/"+inst.ID+"/approve", api.DecisionRequest{ActorID: "alice", Result: "approve"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("workflow configuration", func(t *testing.T) {
		broken := apply(t, h, "broken", nil)
		w := do(t, h, http.MethodPost, "/instances/"+broken.ID+"/approve", api.DecisionRequest{ActorID: "alice", Result: "approve"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "workflow_config", decode[api.ErrorResponse](t, w).Code)
	})
}

func TestIdempotencyKeyReplaysResponse(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))
	inst := apply(t, h, "expense", map[string]any{"amount": 5000})
	path := "/instances/" + inst.ID + "/approve"

	first := do(t, h, http.MethodPost, path, api.DecisionRequest{ActorID: "alice", Result: "approve"}, api.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(api.HeaderIdempotentReplay))

	// Without the key the retry would be a 403: alice is not a finance approver.
	second := do(t, h, http.MethodPost, path, api.DecisionRequest{ActorID: "alice", Result: "approve"}, api.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(api.HeaderIdempotentReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := do(t, h, http.MethodGet, "/instances/"+inst.ID+"/history", nil)
	history := decode[[]api.HistoryRecordResponse](t, w)
	approvals := 0
	for _, rec := range history {
		if rec.Action == "approve" {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)

	third := do(t, h, http.MethodPost, path, api.DecisionRequest{ActorID: "alice", Result: "approve"}, api.HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusForbidden, third.Code)
}

func TestWorkflowGraph(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))
	inst := apply(t, h, "expense", nil)

	w := do(t, h, http.MethodGet, "/workflows/expense/graph?instance="+inst.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), "class manager current;")

	w = do(t, h, http.MethodGet, "/workflows/expense", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"expense"`)
}

func TestWithdraw(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))
	inst := apply(t, h, "expense", nil)

	w := do(t, h, http.MethodPost, "/instances/"+inst.ID+"/withdraw", api.WithdrawRequest{ActorID: "zoe", Comment: "wrong form"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/instances/"+inst.ID+"/approvers", nil)
	assert.Empty(t, decode[api.ApproversResponse](t, w).Approvers)
}

func TestMetricsHandler(t *testing.T) {
	called := false
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	h := api.NewHandler(newTestEngine(t), api.WithMetricsHandler(metrics))

	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestWorkflowEvents_NotWatchable(t *testing.T) {
	h := api.NewHandler(newTestEngine(t))
	w := do(t, h, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestSubscribeInstanceEvents(t *testing.T) {
	srv := httptest.NewServer(api.NewHandler(newTestEngine(t)))
	defer srv.Close()

	created := apply(t, srv.Config.Handler, "expense", map[string]any{"amount": 10})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/instances/"+created.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	body, _ := json.Marshal(api.DecisionRequest{ActorID: "alice", Result: "approve"})
	approve, err := srv.Client().Post(srv.URL+"/instances/"+created.ID+"/approve", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	approve.Body.Close()
	require.Equal(t, http.StatusOK, approve.StatusCode)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: decision") {
			break
		}
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"status":"approved"`)
}
