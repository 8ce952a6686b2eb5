// Package looptask runs exactly one long-lived cooperative task with
// idempotent start/stop/close, the harness every polling loop in the
// transfer core (discovery sender/receiver, connection acceptor) is built
// on top of.
package looptask

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"go_lan_transfer/xerr"
)

// Body is the function a Loop repeatedly drives; it must observe ctx at
// natural suspension points and return when ctx is done.
type Body func(ctx context.Context) error

// Loop starts/stops a single long-running task.
type Loop struct {
	body Body
	log  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	closed  bool
	done    chan struct{}
}

// New builds a Loop around body. The task is not started until Run is called.
func New(body Body, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{body: body, log: log}
}

// Run starts the task if it is not already running. Concurrent calls are
// idempotent: exactly one task starts.
func (l *Loop) Run() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return xerr.New(xerr.Disposed, "loop closed")
	}
	if l.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		if err := l.body(ctx); err != nil && ctx.Err() == nil {
			l.log.Warn("loop body exited with error", zap.Error(err))
		}
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	return nil
}

// Stop signals cancellation. It is safe to call multiple times and does
// not block for the task to observe it.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close signals cancellation, waits for the task to exit, and prevents
// further Run calls.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}
