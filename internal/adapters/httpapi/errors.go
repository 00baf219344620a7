package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Month   string `json:"month,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Limit   *int   `json:"limit,omitempty"`
}

// classify maps a core error to its HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrUpgradeRequestNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, "account_exists"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, domain.ErrTransient):
		return http.StatusServiceUnavailable, "transient"
	case errors.Is(err, domain.ErrOutcomeUnknown):
		return http.StatusServiceUnavailable, "outcome_unknown"
	case errors.Is(err, domain.ErrInvalidAction):
		return http.StatusBadRequest, "invalid_action"
	case errors.Is(err, domain.ErrInvalidPlan):
		return http.StatusBadRequest, "invalid_plan"
	case errors.Is(err, domain.ErrInvalidProfile):
		return http.StatusBadRequest, "invalid_profile"
	case errors.Is(err, domain.ErrInvalidSettings):
		return http.StatusBadRequest, "invalid_settings"
	case errors.Is(err, domain.ErrInvalidUpgrade):
		return http.StatusBadRequest, "invalid_upgrade"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeCoreError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := errorBody{Error: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}

	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		body.Month = string(quotaErr.Month)
		body.Count = &quotaErr.Count
		body.Limit = &quotaErr.Limit
	}
	if code == "transient" {
		w.Header().Set("Retry-After", "1")
	}

	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
