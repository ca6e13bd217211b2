package errorutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	plain := errors.New("boom")
	wrapped := Wrap(plain)
	assert.False(t, wrapped.Retryable)
	assert.Equal(t, "boom", wrapped.Message)
	assert.ErrorIs(t, wrapped, plain)

	retry := Retriable("try again")
	assert.Same(t, retry, Wrap(retry))
	assert.Same(t, retry, Wrap(fmt.Errorf("outer: %w", retry)))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("x")))
	assert.False(t, IsRetryable(NonRetriable("bad body")))
	assert.True(t, IsRetryable(Retriable("later")))

	err := RetriableWrap(context.DeadlineExceeded, "processing interrupted")
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "processing interrupted")
}
