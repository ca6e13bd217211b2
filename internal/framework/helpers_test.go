package framework

import (
	"context"
	"errors"
	"sync"
	"time"
)

type nopLogger struct{}

func (nopLogger) Debugf(context.Context, string, ...interface{}) {}
func (nopLogger) Infof(context.Context, string, ...interface{})  {}
func (nopLogger) Warnf(context.Context, string, ...interface{})  {}
func (nopLogger) Errorf(context.Context, string, ...interface{}) {}

var errConnectionReset = errors.New("connection reset by peer")

// fakeSource 内存消息源
type fakeSource struct {
	mu          sync.Mutex
	pending     []*Message
	consumeErrs int
	ackErr      error

	acked    []string
	released []string
	buried   map[string]string
	closed   bool
}

func newFakeSource(msgs ...*Message) *fakeSource {
	return &fakeSource{pending: msgs, buried: make(map[string]string)}
}

func (f *fakeSource) Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*Message, error) {
	f.mu.Lock()
	if f.consumeErrs > 0 {
		f.consumeErrs--
		f.mu.Unlock()
		return nil, errConnectionReset
	}
	if len(f.pending) > 0 {
		msg := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (f *fakeSource) Ack(ctx context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked = append(f.acked, msg.ID)
	return nil
}

func (f *fakeSource) Release(ctx context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, msg.ID)
	return nil
}

func (f *fakeSource) Bury(ctx context.Context, msg *Message, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buried[msg.ID] = reason
	return nil
}

func (f *fakeSource) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

func (f *fakeSource) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

func (f *fakeSource) buriedReasons() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.buried))
	for k, v := range f.buried {
		out[k] = v
	}
	return out
}

// renewingSource 支持续期消息锁的内存消息源，每次续期把锁延长 lock
type renewingSource struct {
	*fakeSource
	lock     time.Duration
	renewErr error

	renewMu  sync.Mutex
	renewals int
}

func newRenewingSource(lock time.Duration, renewErr error) *renewingSource {
	return &renewingSource{fakeSource: newFakeSource(), lock: lock, renewErr: renewErr}
}

func (r *renewingSource) RenewLock(ctx context.Context, msg *Message) (time.Time, error) {
	r.renewMu.Lock()
	defer r.renewMu.Unlock()
	r.renewals++
	if r.renewErr != nil {
		return time.Time{}, r.renewErr
	}
	return time.Now().Add(r.lock), nil
}

func (r *renewingSource) renewalCount() int {
	r.renewMu.Lock()
	defer r.renewMu.Unlock()
	return r.renewals
}

// errorRecorder 收集 ErrorHandler 收到的事件
type errorRecorder struct {
	mu     sync.Mutex
	events []ErrorEvent
}

func (r *errorRecorder) handle(ctx context.Context, event *ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
}

func (r *errorRecorder) all() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ErrorEvent(nil), r.events...)
}

// settleRecorder 实现 SettleListener
type settleRecorder struct {
	mu      sync.Mutex
	actions map[string]JobRespStatus
}

func (r *settleRecorder) OnSettled(ctx context.Context, msg *Message, action JobRespStatus, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actions == nil {
		r.actions = make(map[string]JobRespStatus)
	}
	r.actions[msg.ID] = action
}

func (r *settleRecorder) get(id string) (JobRespStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actions[id]
	return a, ok
}
