package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountExists          = errors.New("account already exists")
	ErrUpgradeRequestNotFound = errors.New("upgrade request not found")

	ErrInvalidTransition   = errors.New("invalid transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrQuotaExceeded       = errors.New("monthly quota exceeded")
	ErrTransient           = errors.New("transient store error")
	ErrOutcomeUnknown      = errors.New("store outcome unknown")
	ErrSettingsUnavailable = errors.New("plan settings unavailable")
	ErrInvalidAction       = errors.New("invalid action for account kind")
	ErrInvalidPlan         = errors.New("invalid plan change")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrInvalidSettings     = errors.New("invalid plan settings")
	ErrInvalidUpgrade      = errors.New("invalid upgrade request")
)

// TransitionError describes a refused status change.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// QuotaExceededError carries the counters the caller needs to explain a refusal.
type QuotaExceededError struct {
	Action ActionKind
	Month  MonthKey
	Count  int
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly %s quota exceeded for %s: %d/%d", e.Action, e.Month, e.Count, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Transient marks err as retryable at the transaction boundary.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// OutcomeUnknown marks a write whose result the store could not confirm.
// It is never retried.
func OutcomeUnknown(err error) error {
	if err == nil || errors.Is(err, ErrOutcomeUnknown) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrOutcomeUnknown, err)
}
