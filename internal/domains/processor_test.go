package domains

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"azpoc/backendapi/internal/domains/handlers/simulate"
	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/errorutil"
	"azpoc/backendapi/pkg/logger"
)

func newObservedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

type handlerFunc func(ctx context.Context, msg *framework.Message) error

func (f handlerFunc) Handle(ctx context.Context, msg *framework.Message) error {
	return f(ctx, msg)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*framework.ErrorEvent
}

func (r *eventRecorder) handle(ctx context.Context, event *framework.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestGetProcess_MapsHandlerResult(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		action framework.JobRespStatus
	}{
		{name: "success", err: nil, action: framework.JobRespStatusSuccess},
		{name: "retryable", err: errorutil.Retriable("lock lost"), action: framework.JobRespStatusRelease},
		{name: "non retryable", err: errorutil.NonRetriable("bad payload"), action: framework.JobRespStatusBury},
		{name: "plain error", err: errors.New("boom"), action: framework.JobRespStatusBury},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, _ := newObservedLogger()
			proc := GetProcess(log, handlerFunc(func(ctx context.Context, msg *framework.Message) error {
				return tt.err
			}), nil, nil)

			resp := proc(context.Background(), &framework.Message{ID: "m1"})
			require.NotNil(t, resp)
			assert.Equal(t, tt.action, resp.Action)
		})
	}
}

func TestGetProcess_InjectsTraceID(t *testing.T) {
	log, _ := newObservedLogger()
	var traceID string
	proc := GetProcess(log, handlerFunc(func(ctx context.Context, msg *framework.Message) error {
		traceID = logger.TraceID(ctx)
		return nil
	}), nil, nil)

	proc(context.Background(), &framework.Message{ID: "m1"})
	assert.NotEmpty(t, traceID)
}

func TestGetProcess_ReportsFailuresToErrorHandler(t *testing.T) {
	log, _ := newObservedLogger()
	recorder := &eventRecorder{}
	proc := GetProcess(log, handlerFunc(func(ctx context.Context, msg *framework.Message) error {
		return errors.New("boom")
	}), recorder.handle, nil)

	proc(context.Background(), &framework.Message{ID: "m1", Queue: "work-items"})

	require.Len(t, recorder.events, 1)
	assert.Equal(t, framework.ErrorSourceUserCallback, recorder.events[0].Source)
	assert.Equal(t, "m1", recorder.events[0].MessageID)
	assert.Equal(t, "work-items", recorder.events[0].Queue)
}

func TestGetProcess_RecoversPanic(t *testing.T) {
	log, _ := newObservedLogger()
	recorder := &eventRecorder{}
	proc := GetProcess(log, handlerFunc(func(ctx context.Context, msg *framework.Message) error {
		panic("nil body")
	}), recorder.handle, nil)

	var resp *framework.JobResp
	assert.NotPanics(t, func() {
		resp = proc(context.Background(), &framework.Message{ID: "m1"})
	})
	assert.Equal(t, framework.JobRespStatusBury, resp.Action)
	assert.Contains(t, resp.Reason, "nil body")
	require.Len(t, recorder.events, 1)
}

// orderedSource 记录 Ack 时 "Processed" 日志是否已经输出
type orderedSource struct {
	mu             sync.Mutex
	logs           *observer.ObservedLogs
	acked          []string
	processedFirst map[string]bool
}

func (s *orderedSource) Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *orderedSource) Ack(ctx context.Context, msg *framework.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, msg.ID)
	s.processedFirst[msg.ID] = s.logs.FilterMessage("Message #"+msg.ID+" - Processed").Len() == 1
	return nil
}

func (s *orderedSource) Release(ctx context.Context, msg *framework.Message) error { return nil }

func (s *orderedSource) Bury(ctx context.Context, msg *framework.Message, reason string) error {
	return nil
}

func (s *orderedSource) Close(ctx context.Context) error { return nil }

func TestSimulatedWork_CompletesAfterProcessedLine(t *testing.T) {
	log, logs := newObservedLogger()
	source := &orderedSource{logs: logs, processedFirst: make(map[string]bool)}

	proc := GetProcess(log, simulate.New(10*time.Millisecond, log), nil, nil)
	p := framework.NewProcessor(&framework.ProcessorConfig{Concurrency: 2}, proc, source, nil, log)

	input := make(chan *framework.Message, 3)
	input <- &framework.Message{ID: "1", Queue: "work-items"}
	input <- &framework.Message{ID: "2", Queue: "work-items"}
	input <- &framework.Message{ID: "3", Queue: "work-items"}

	p.Start(context.Background(), input)
	p.SignalShutdown()
	p.Wait()

	assert.ElementsMatch(t, []string{"1", "2", "3"}, source.acked)
	for _, id := range []string{"1", "2", "3"} {
		assert.True(t, source.processedFirst[id], "message %s acked before Processed line", id)
		assert.Equal(t, 1, logs.FilterMessage("Message #"+id+" - Received - Processing (0.01 sec)").Len())
		assert.Equal(t, 1, logs.FilterMessage("Message #"+id+" - Processed").Len())
	}
}

func TestSimulatedWork_TimeoutReleasesMessage(t *testing.T) {
	log, logs := newObservedLogger()
	source := &orderedSource{logs: logs, processedFirst: make(map[string]bool)}

	proc := GetProcess(log, simulate.New(time.Hour, log), nil, nil)
	p := framework.NewProcessor(&framework.ProcessorConfig{Concurrency: 1, Timeout: 10 * time.Millisecond}, proc, source, nil, log)

	input := make(chan *framework.Message, 1)
	input <- &framework.Message{ID: "slow"}

	p.Start(context.Background(), input)
	p.SignalShutdown()
	p.Wait()

	assert.Empty(t, source.acked)
	assert.Equal(t, 0, logs.FilterMessage("Message #slow - Processed").Len())
}
