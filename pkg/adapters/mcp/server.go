// Package mcp exposes the approval engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/internal/presentation/graph"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the approval engine and exposes it as an MCP server.
type Server struct {
	engine    ports.Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server reporting the given version.
func NewServer(engine ports.Service, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("signoff-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, for embedding in another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("apply",
		mcp.WithDescription("Create an approval instance of a workflow. Set initialize to enter the first approval node right away."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow definition id")),
		mcp.WithString("applicant_id", mcp.Required(), mcp.Description("Id of the person submitting the request")),
		mcp.WithObject("data", mcp.Description("Business fields read by condition nodes")),
		mcp.WithBoolean("initialize", mcp.Description("Initialize the instance after creating it")),
	), s.handleApply)

	s.mcpServer.AddTool(mcp.NewTool("initialize",
		mcp.WithDescription("Enter the first node of an applied instance."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance id")),
	), s.handleInitialize)

	s.mcpServer.AddTool(mcp.NewTool("approve",
		mcp.WithDescription("Apply an approve or reject decision at the instance's current node."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance id")),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("Id of the approver")),
		mcp.WithString("result", mcp.Required(), mcp.Enum(domain.ResultApprove, domain.ResultReject), mcp.Description("Decision")),
		mcp.WithString("actor_name", mcp.Description("Display name of the approver")),
		mcp.WithString("comment", mcp.Description("Free-text comment kept in the history")),
	), s.handleApprove)

	s.mcpServer.AddTool(mcp.NewTool("approvers",
		mcp.WithDescription("List who may act on the instance right now."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance id")),
	), s.handleApprovers)

	s.mcpServer.AddTool(mcp.NewTool("node_info",
		mcp.WithDescription("Describe the node the instance is waiting at, including gate progress."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance id")),
	), s.handleNodeInfo)

	s.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Return the audit trail of an instance in order."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance id")),
	), s.handleHistory)

	s.mcpServer.AddTool(mcp.NewTool("graph",
		mcp.WithDescription("Render a workflow as a Mermaid flowchart, optionally highlighting an instance's progress."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow definition id")),
		mcp.WithString("instance_id", mcp.Description("Instance to overlay")),
	), s.handleGraph)
}

func (s *Server) handleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	applicantID, err := req.RequireString("applicant_id")
	if err != nil {
		return mcp.NewToolResultError("applicant_id is required"), nil
	}
	data := mcp.ParseStringMap(req, "data", nil)

	inst, err := s.engine.Apply(ctx, workflowID, applicantID, data)
	if err != nil {
		return s.toolError("apply", err), nil
	}
	if req.GetBool("initialize", false) {
		if _, err := s.engine.Initialize(ctx, inst.ID); err != nil {
			return s.toolError("initialize", err), nil
		}
		if inst, err = s.engine.Instance(ctx, inst.ID); err != nil {
			return s.toolError("apply", err), nil
		}
	}
	return marshalResult(inst)
}

func (s *Server) handleInitialize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("instance_id is required"), nil
	}
	status, err := s.engine.Initialize(ctx, id)
	if err != nil {
		return s.toolError("initialize", err), nil
	}
	return marshalResult(map[string]string{"status": string(status)})
}

func (s *Server) handleApprove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("instance_id is required"), nil
	}
	actorID, err := req.RequireString("actor_id")
	if err != nil {
		return mcp.NewToolResultError("actor_id is required"), nil
	}
	result, err := req.RequireString("result")
	if err != nil {
		return mcp.NewToolResultError("result is required"), nil
	}

	out, err := s.engine.Approve(ctx, id, domain.Decision{
		ActorID:   actorID,
		ActorName: req.GetString("actor_name", ""),
		Comment:   req.GetString("comment", ""),
		Result:    result,
	})
	if err != nil {
		return s.toolError("approve", err), nil
	}
	return marshalResult(out)
}

func (s *Server) handleApprovers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("instance_id is required"), nil
	}
	approvers, err := s.engine.CurrentApprovers(ctx, id)
	if err != nil {
		return s.toolError("approvers", err), nil
	}
	return marshalResult(map[string]any{"instance_id": id, "approvers": approvers})
}

func (s *Server) handleNodeInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("instance_id is required"), nil
	}
	info, err := s.engine.CurrentNodeInfo(ctx, id)
	if err != nil {
		return s.toolError("node_info", err), nil
	}
	return marshalResult(info)
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("instance_id is required"), nil
	}
	if _, err := s.engine.Instance(ctx, id); err != nil {
		return s.toolError("history", err), nil
	}
	records, err := s.engine.History(ctx, id)
	if err != nil {
		return s.toolError("history", err), nil
	}
	return marshalResult(map[string]any{"instance_id": id, "records": records})
}

func (s *Server) handleGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	wf, err := s.engine.Workflow(ctx, workflowID)
	if err != nil {
		return s.toolError("graph", err), nil
	}

	var overlay *graph.GraphOverlay
	if instanceID := req.GetString("instance_id", ""); instanceID != "" {
		inst, err := s.engine.Instance(ctx, instanceID)
		if err != nil {
			return s.toolError("graph", err), nil
		}
		history, err := s.engine.History(ctx, instanceID)
		if err != nil {
			return s.toolError("graph", err), nil
		}
		overlay = graph.OverlayFromInstance(inst, history)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(wf, overlay)), nil
}

// toolError reports engine errors as tool results so the model can react to them.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("MCP tool failed", "tool", tool, "err", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
