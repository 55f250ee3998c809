package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aretw0/signoff/internal/validator"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("load: %w", domain.ErrInstanceNotFound), http.StatusNotFound},
		{&domain.TurnError{NodeID: "n", Actor: "b", Expected: "a"}, http.StatusForbidden},
		{&domain.ConfigError{WorkflowID: "wf", Err: domain.ErrNoRouteForSocket}, http.StatusUnprocessableEntity},
		{&validator.AggregateError{Errors: []error{fmt.Errorf("node n: %w", domain.ErrAmbiguousRoute)}}, http.StatusUnprocessableEntity},
		{domain.ErrInstanceClosed, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}
