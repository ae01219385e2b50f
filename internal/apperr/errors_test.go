package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindAndReason(t *testing.T) {
	err := PolicyRejected(ReasonSwapWindowClosed, "swap window closed")

	assert.True(t, errors.Is(err, ErrPolicyRejected))
	assert.True(t, errors.Is(err, &Error{Kind: KindPolicyRejected, Reason: ReasonSwapWindowClosed}))
	assert.False(t, errors.Is(err, &Error{Kind: KindPolicyRejected, Reason: ReasonNoPlan}))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("assign: %w", Conflict("client changed"))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection reset")))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(NotFound("client not found")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindAuthenticationRequired, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindPolicyRejected, http.StatusUnprocessableEntity},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}
