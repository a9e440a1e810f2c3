// internal/apperrors/errors_test.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInsufficientArea, CodeOf(InsufficientArea("plot has 2.50 acres")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("mint failed: %w", NoFunds("empty balance"))
	assert.Equal(t, CodeNoFunds, CodeOf(wrapped))
}

func TestIsCode(t *testing.T) {
	err := AlreadyVerified("bank flag set for token 3")

	assert.True(t, IsCode(err, CodeAlreadyVerified))
	assert.False(t, IsCode(err, CodeValidation))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := TransferFailed(cause, "payout failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "payout failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:       http.StatusBadRequest,
		CodeInsufficientArea: http.StatusBadRequest,
		CodePaymentMismatch:  http.StatusBadRequest,
		CodeAuthorization:    http.StatusForbidden,
		CodeNotFound:         http.StatusNotFound,
		CodeInvalidState:     http.StatusConflict,
		CodeAlreadyVerified:  http.StatusConflict,
		CodeDuplicatePayment: http.StatusConflict,
		CodeNoFunds:          http.StatusConflict,
		CodeTransferFailed:   http.StatusBadGateway,
		CodeSetup:            http.StatusInternalServerError,
		CodeInternal:         http.StatusInternalServerError,
	}

	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
