package domain

import (
	"errors"
	"fmt"
)

// Lookup errors.
var (
	// ErrInstanceNotFound is returned when an instance id cannot be found in the store.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrWorkflowNotFound is returned when a workflow id cannot be found in the store.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// Configuration errors. They are fatal for the call and leave the instance untouched.
var (
	ErrNoStartNode        = errors.New("workflow has no start node")
	ErrMultipleStartNodes = errors.New("workflow has more than one start node")
	ErrNoOutgoing         = errors.New("node has no outgoing connection")
	ErrNoRouteForSocket   = errors.New("no connection for output socket")
	ErrConditionLoop      = errors.New("condition nodes form a loop")
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrUnknownNode        = errors.New("connection targets an unknown node")
	ErrAmbiguousRoute     = errors.New("more than one connection leaves the same socket")
	ErrDuplicateApprover  = errors.New("approver listed more than once")
)

// Caller errors. They are recoverable and leave the instance untouched.
var (
	ErrInstanceClosed     = errors.New("instance is already closed")
	ErrCurrentNodeMissing = errors.New("current node does not exist in workflow")
	ErrNotYourTurn        = errors.New("not this approver's turn")
	ErrNotApprover        = errors.New("actor is not an approver of the current node")
	ErrNotInitialized     = errors.New("instance has not been initialized")
	ErrAlreadyInitialized = errors.New("instance was already initialized")
	ErrNotAGate           = errors.New("current node does not accept sign-off")
	ErrInvalidResult      = errors.New("result must be 'approve' or 'reject'")
)

// ConfigError locates a configuration error in a workflow graph.
type ConfigError struct {
	WorkflowID string
	NodeID     string
	Detail     string
	Err        error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("workflow %q", e.WorkflowID)
	if e.NodeID != "" {
		msg += fmt.Sprintf(" node %q", e.NodeID)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a workflow configuration error.
func IsConfigError(err error) bool {
	var cfg *ConfigError
	return errors.As(err, &cfg)
}

// TurnError carries who was expected when ErrNotYourTurn is returned.
type TurnError struct {
	NodeID   string
	Actor    string
	Expected string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("node %q: %s: %q acted, expected %q", e.NodeID, ErrNotYourTurn, e.Actor, e.Expected)
}

func (e *TurnError) Unwrap() error {
	return ErrNotYourTurn
}
