package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/signoff/pkg/domain"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInstanceNotFound, http.StatusNotFound, "instance_not_found"},
	{domain.ErrWorkflowNotFound, http.StatusNotFound, "workflow_not_found"},
	{domain.ErrInstanceClosed, http.StatusConflict, "instance_closed"},
	{domain.ErrAlreadyInitialized, http.StatusConflict, "already_initialized"},
	{domain.ErrNotInitialized, http.StatusConflict, "not_initialized"},
	{domain.ErrNotYourTurn, http.StatusForbidden, "not_your_turn"},
	{domain.ErrNotApprover, http.StatusForbidden, "not_approver"},
	{domain.ErrNotAGate, http.StatusForbidden, "not_a_gate"},
	{domain.ErrCurrentNodeMissing, http.StatusForbidden, "current_node_missing"},
	{domain.ErrInvalidResult, http.StatusBadRequest, "invalid_result"},
}

var configErrors = []error{
	domain.ErrNoStartNode,
	domain.ErrMultipleStartNodes,
	domain.ErrNoOutgoing,
	domain.ErrNoRouteForSocket,
	domain.ErrConditionLoop,
	domain.ErrUnknownNodeType,
	domain.ErrUnknownNode,
	domain.ErrAmbiguousRoute,
}

// statusFor maps an engine error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	if domain.IsConfigError(err) {
		return http.StatusUnprocessableEntity, "workflow_config"
	}
	for _, cfg := range configErrors {
		if errors.Is(err, cfg) {
			return http.StatusUnprocessableEntity, "workflow_config"
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
