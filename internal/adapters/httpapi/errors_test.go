package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: fmt.Errorf("get: %w", domain.ErrAccountNotFound), status: http.StatusNotFound, code: "not_found"},
		{err: domain.ErrUnauthorized, status: http.StatusForbidden, code: "unauthorized"},
		{err: &domain.TransitionError{From: domain.StatusActive, To: domain.StatusPending}, status: http.StatusConflict, code: "invalid_transition"},
		{err: &domain.QuotaExceededError{Count: 3, Limit: 3}, status: http.StatusTooManyRequests, code: "quota_exceeded"},
		{err: domain.Transient(errors.New("busy")), status: http.StatusServiceUnavailable, code: "transient"},
		{err: domain.OutcomeUnknown(errors.New("commit ack lost")), status: http.StatusServiceUnavailable, code: "outcome_unknown"},
		{err: domain.ErrInvalidPlan, status: http.StatusBadRequest, code: "invalid_plan"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tt := range tests {
		status, code := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestWriteCoreErrorRetryAfterOnlyForTransient(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeCoreError(rec, domain.Transient(errors.New("busy")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	writeCoreError(rec, domain.OutcomeUnknown(errors.New("commit ack lost")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"error":"outcome_unknown"`)
}
