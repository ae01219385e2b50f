// Package apperr defines the error taxonomy shared by the authorization
// resolver, the entitlement engine and the transport layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindAuthenticationRequired Kind = "authentication_required"
	KindForbidden              Kind = "forbidden"
	KindNotFound               Kind = "not_found"
	KindPolicyRejected         Kind = "policy_rejected"
	KindValidation             Kind = "validation_error"
	KindConflict               Kind = "conflict"
	KindInternal               Kind = "internal_error"
)

// Reason further qualifies policy rejections.
type Reason string

const (
	ReasonNoPlan                    Reason = "NoPlan"
	ReasonPlanExpired               Reason = "PlanExpired"
	ReasonRefreshIntervalNotElapsed Reason = "RefreshIntervalNotElapsed"
	ReasonNoActiveAssignment        Reason = "NoActiveAssignment"
	ReasonSwapWindowClosed          Reason = "SwapWindowClosed"
	ReasonSwapLimitExhausted        Reason = "SwapLimitExhausted"
	ReasonItemNotInActivePlan       Reason = "ItemNotInActivePlan"
)

// Error is an expected, typed failure. Anything that is not an *Error is
// treated as an internal failure by callers.
type Error struct {
	Kind    Kind   `json:"type"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on kind (and reason when the target sets one), so callers can
// write errors.Is(err, apperr.ErrConflict).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired, Message: "authentication required"}
	ErrForbidden              = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrPolicyRejected         = &Error{Kind: KindPolicyRejected, Message: "rejected by plan policy"}
	ErrValidation             = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict               = &Error{Kind: KindConflict, Message: "concurrent update, retry"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func AuthenticationRequired(message string) *Error {
	return New(KindAuthenticationRequired, message)
}

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Validation(message string) *Error { return New(KindValidation, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

// PolicyRejected builds a business-rule rejection.
func PolicyRejected(reason Reason, message string) *Error {
	return &Error{Kind: KindPolicyRejected, Reason: reason, Message: message}
}

// From extracts an *Error from err, if any.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err; non-application errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := From(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the request unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConflict
}

// HTTPStatus maps a kind to the status code the transport should use.
// Not-found and hidden forbidden retrievals share the 404 shape.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPolicyRejected:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
