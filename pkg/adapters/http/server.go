// Package http exposes the approval engine as a JSON API over chi.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/internal/presentation/graph"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies; instance data is small business payload.
const maxBodyBytes = 1 << 20

// Server serves the approval API on top of a ports.Service.
type Server struct {
	Engine  ports.Service
	Streams *StreamManager

	logger         *slog.Logger
	metrics        http.Handler
	idempotency    *idempotencyCache
	idempotencyTTL time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the default promhttp handler served at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithIdempotencyTTL sets how long Idempotency-Key responses are replayed.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.idempotencyTTL = ttl
	}
}

// NewServer creates a Server. Use Routes or NewHandler to obtain the handler.
func NewServer(engine ports.Service, opts ...Option) *Server {
	s := &Server{
		Engine:         engine,
		logger:         logging.NewNop(),
		idempotencyTTL: DefaultIdempotencyTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}
	s.Streams = NewStreamManager(s.logger)
	s.idempotency = newIdempotencyCache(s.idempotencyTTL)
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.Service, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Handle("/metrics", s.metrics)
	r.Get("/events", s.SubscribeWorkflowEvents)

	r.Route("/workflows/{workflowID}", func(r chi.Router) {
		r.Get("/", s.GetWorkflow)
		r.Get("/graph", s.GetWorkflowGraph)
	})

	r.Post("/instances", s.idempotent(s.ApplyInstance))
	r.Route("/instances/{instanceID}", func(r chi.Router) {
		r.Get("/", s.GetInstance)
		r.Post("/initialize", s.idempotent(s.InitializeInstance))
		r.Post("/approve", s.idempotent(s.ApproveInstance))
		r.Post("/withdraw", s.idempotent(s.WithdrawInstance))
		r.Get("/approvers", s.GetApprovers)
		r.Get("/node", s.GetNodeInfo)
		r.Get("/history", s.GetHistory)
		r.Get("/events", s.SubscribeInstanceEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderIdempotencyKey)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.writeBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ApplyInstance handles POST /instances.
func (s *Server) ApplyInstance(w http.ResponseWriter, r *http.Request) {
	var body ApplyRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.WorkflowID == "" || body.ApplicantID == "" {
		s.writeBadRequest(w, "workflowId and applicantId are required")
		return
	}

	inst, err := s.Engine.Apply(r.Context(), body.WorkflowID, body.ApplicantID, body.Data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Initialize {
		if _, err := s.Engine.Initialize(r.Context(), inst.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
		if inst, err = s.Engine.Instance(r.Context(), inst.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	w.Header().Set("Location", "/instances/"+inst.ID)
	s.writeJSON(w, http.StatusCreated, mapInstance(inst))
}

// GetInstance handles GET /instances/{id}.
func (s *Server) GetInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Engine.Instance(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mapInstance(inst))
}

// InitializeInstance handles POST /instances/{id}/initialize.
func (s *Server) InitializeInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")
	status, err := s.Engine.Initialize(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := StatusResponse{Status: string(status)}
	s.broadcast(id, "initialized", resp)
	s.writeJSON(w, http.StatusOK, resp)
}

// ApproveInstance handles POST /instances/{id}/approve.
func (s *Server) ApproveInstance(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.ActorID == "" {
		s.writeBadRequest(w, "actorId is required")
		return
	}

	id := chi.URLParam(r, "instanceID")
	out, err := s.Engine.Approve(r.Context(), id, domain.Decision{
		ActorID:   body.ActorID,
		ActorName: body.ActorName,
		Comment:   body.Comment,
		Result:    body.Result,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := mapOutcome(out)
	s.broadcast(id, "decision", resp)
	s.writeJSON(w, http.StatusOK, resp)
}

// WithdrawInstance handles POST /instances/{id}/withdraw.
func (s *Server) WithdrawInstance(w http.ResponseWriter, r *http.Request) {
	var body WithdrawRequest
	if !s.decode(w, r, &body) {
		return
	}

	id := chi.URLParam(r, "instanceID")
	if err := s.Engine.Withdraw(r.Context(), id, body.ActorID, body.Comment); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := StatusResponse{Status: string(domain.StatusWithdrawn)}
	s.broadcast(id, "withdrawn", resp)
	s.writeJSON(w, http.StatusOK, resp)
}

// GetApprovers handles GET /instances/{id}/approvers.
func (s *Server) GetApprovers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")
	approvers, err := s.Engine.CurrentApprovers(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ApproversResponse{InstanceID: id, Approvers: approvers})
}

// GetNodeInfo handles GET /instances/{id}/node.
func (s *Server) GetNodeInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.CurrentNodeInfo(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mapNodeInfo(info))
}

// GetHistory handles GET /instances/{id}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")
	// History of an unknown instance is a 404, not an empty list.
	if _, err := s.Engine.Instance(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.Engine.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mapHistory(records))
}

// GetWorkflow handles GET /workflows/{id}.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.Engine.Workflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// GetWorkflowGraph handles GET /workflows/{id}/graph and returns Mermaid text.
// With ?instance=<id> the instance's progress is overlaid.
func (s *Server) GetWorkflowGraph(w http.ResponseWriter, r *http.Request) {
	wf, err := s.Engine.Workflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var overlay *graph.GraphOverlay
	if instanceID := r.URL.Query().Get("instance"); instanceID != "" {
		inst, err := s.Engine.Instance(r.Context(), instanceID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if inst.WorkflowID != wf.ID {
			s.writeBadRequest(w, fmt.Sprintf("instance %s belongs to workflow %s", inst.ID, inst.WorkflowID))
			return
		}
		history, err := s.Engine.History(r.Context(), instanceID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		overlay = graph.OverlayFromInstance(inst, history)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(wf, overlay)))
}

func (s *Server) broadcast(instanceID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.Streams.Broadcast(instanceID, fmt.Sprintf("event: %s\ndata: %s", event, data))
}

// SubscribeInstanceEvents handles GET /instances/{id}/events (SSE).
// Every write made through this server to the instance is pushed to the client.
func (s *Server) SubscribeInstanceEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "instanceID")
	if _, err := s.Engine.Instance(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	setSSEHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "instance_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "%s\n\n", msg)
			flusher.Flush()
		}
	}
}

// SubscribeWorkflowEvents handles GET /events (SSE) and streams the ids of
// workflows whose definition changed. It needs a watchable engine.
func (s *Server) SubscribeWorkflowEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	watchable, ok := s.Engine.(ports.Watchable)
	if !ok {
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "workflow store does not support watching", Code: "not_watchable"})
		return
	}
	events, err := watchable.Watch(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: err.Error(), Code: "not_watchable"})
		return
	}

	setSSEHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: workflow\ndata: %s\n\n", strings.TrimSpace(id))
			flusher.Flush()
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
