package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("work_item", "wi-1")))
	assert.Equal(t, ErrCodeValidation, CodeOf(InvalidInput("amount", "must be positive")))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))

	wrapped := Wrap(stderrors.New("db down"), ErrCodeInternal, "query failed")
	assert.Equal(t, ErrCodeInternal, CodeOf(wrapped))
	assert.ErrorContains(t, wrapped, "db down")
}

func TestIs(t *testing.T) {
	err := New(ErrCodeStaleChain, "step moved")
	assert.True(t, Is(err, ErrCodeStaleChain))
	assert.False(t, Is(err, ErrCodeConflict))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{ErrCodeValidation, http.StatusUnprocessableEntity},
		{ErrCodeInvalidTransition, http.StatusUnprocessableEntity},
		{ErrCodeUnauthorized, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeNoMatchingWorkflow, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeStaleChain, http.StatusConflict},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(New(tt.code, "x")))
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("plain")))
}
