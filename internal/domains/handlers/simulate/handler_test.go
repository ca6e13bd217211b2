package simulate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/errorutil"
	"azpoc/backendapi/pkg/logger"
)

func newObservedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

func messages(logs *observer.ObservedLogs) []string {
	out := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

func TestHandle_LogsReceivedThenProcessed(t *testing.T) {
	log, logs := newObservedLogger()
	h := New(20*time.Millisecond, log)

	start := time.Now()
	err := h.Handle(context.Background(), &framework.Message{ID: "42"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, []string{
		"Message #42 - Received - Processing (0.02 sec)",
		"Message #42 - Processed",
	}, messages(logs))
}

func TestHandle_WholeSeconds(t *testing.T) {
	assert.Equal(t, "10", formatSeconds(10*time.Second))
	assert.Equal(t, "0", formatSeconds(0))
}

func TestHandle_ZeroDuration(t *testing.T) {
	log, logs := newObservedLogger()
	h := New(0, log)

	require.NoError(t, h.Handle(context.Background(), &framework.Message{ID: "m1"}))
	assert.Equal(t, []string{
		"Message #m1 - Received - Processing (0 sec)",
		"Message #m1 - Processed",
	}, messages(logs))
}

func TestHandle_ContextEndsBeforeDelay(t *testing.T) {
	log, logs := newObservedLogger()
	h := New(time.Hour, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := h.Handle(ctx, &framework.Message{ID: "m1"})
	require.Error(t, err)
	assert.True(t, errorutil.IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, []string{"Message #m1 - Received - Processing (3600 sec)"}, messages(logs))
}

func TestHandle_ConcurrentMessagesAreIndependent(t *testing.T) {
	log, logs := newObservedLogger()
	h := New(30*time.Millisecond, log)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, h.Handle(context.Background(), &framework.Message{ID: id}))
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 1, logs.FilterMessage("Message #"+id+" - Processed").Len())
	}
}
