package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(ErrUnauthorized, "run `hirepanel login`")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "run `hirepanel login`", hints[0])
	assert.True(t, IsUnauthorized(err))
}

func TestStatusError_UnwrapsToSentinel(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnprocessableEntity, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := Wrap(&StatusError{Code: tt.code}, "load inquiries")
			assert.True(t, Is(err, tt.want))
		})
	}

	assert.False(t, IsUnauthorized(&StatusError{Code: http.StatusInternalServerError}))
}

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "Recruiter already approved", (&StatusError{Code: 409, Message: "Recruiter already approved"}).Error())
	assert.Equal(t, "Server error. Please try again later.", (&StatusError{Code: 503}).Error())
	assert.Equal(t, "request failed with status 418", (&StatusError{Code: 418}).Error())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))

	err := Wrap(&StatusError{Code: http.StatusForbidden}, "approve recruiter 7")
	assert.Equal(t, StatusText(http.StatusForbidden), UserMessage(err))

	plain := New("reason is required")
	assert.Equal(t, "reason is required", UserMessage(plain))

	dial := Mark(New("dial tcp 10.0.0.1:80: connect: connection refused"), ErrTransport)
	assert.NotContains(t, UserMessage(dial), "dial tcp")
	assert.Contains(t, UserMessage(dial), "Could not reach the server")
}

func TestNewInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("reason must be at most %d characters", 1000)
	assert.True(t, IsInvalidRequest(err))
	assert.Equal(t, "reason must be at most 1000 characters", err.Error())
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.False(t, IsInvalidRequest(nil))
}

func ExampleWrap() {
	err := Wrap(ErrTransport, "failed to load recruiters")
	fmt.Println(err)
	// Output: failed to load recruiters: network error
}
