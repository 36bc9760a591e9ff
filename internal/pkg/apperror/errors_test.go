package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeQuotaExceeded, http.StatusForbidden},
		{ErrCodeInvalidAmount, http.StatusBadRequest},
		{ErrCodeNothingDue, http.StatusBadRequest},
		{ErrCodeInvalidSignature, http.StatusBadRequest},
		{ErrCodeAlreadyAssigned, http.StatusConflict},
		{ErrCodePayeeNotOnboarded, http.StatusConflict},
		{ErrCodeConcurrentUpdate, http.StatusConflict},
		{ErrCodeGateway, http.StatusBadGateway},
		{ErrCodeDatabaseError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	err := fmt.Errorf("job: %w", Wrap(cause, ErrCodeDatabaseError, "не удалось сохранить"))

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, ErrCodeDatabaseError))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "deadlock")
}

func TestIsMatchesPredefinedErrors(t *testing.T) {
	err := fmt.Errorf("accept: %w", ErrAlreadyAssigned)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
	assert.NotErrorIs(t, err, ErrJobNotOpen)
}

func TestWithDetailsCopies(t *testing.T) {
	err := QuotaExceeded(5, 5, "basic")
	assert.Equal(t, ErrCodeQuotaExceeded, err.Code)
	assert.Equal(t, map[string]any{"used": 5, "limit": 5, "tier": "basic"}, err.Details)

	base := New(ErrCodeConflict, "конфликт")
	withDetails := base.WithDetails(map[string]any{"k": "v"})
	assert.Nil(t, base.Details)
	assert.NotNil(t, withDetails.Details)
}

func TestInvalidTransitionFormatsMessage(t *testing.T) {
	err := InvalidTransition("статус %s", "completed")
	assert.True(t, IsInvalidTransition(err))
	assert.Equal(t, "статус completed", err.Message)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
}
