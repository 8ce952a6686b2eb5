package xfer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go_lan_transfer/blockio"
	"go_lan_transfer/frame"
	"go_lan_transfer/looptask"
)

// Transfer owns one direction of one file's streaming: the framed channel
// it runs over, the block accessor backing it, and the state machine
// transitions that follow a completed, paused, or failed streaming pass.
//
// Cancellation uses two independent tokens: pause is re-created on every
// Run and only stops the current streaming pass; cancel is created once,
// for the life of the Transfer, and is fatal.
type Transfer struct {
	ID        uuid.UUID
	Direction Direction

	ch  *frame.Channel
	acc *blockio.Accessor
	log *zap.Logger

	loop *looptask.Loop

	cancelCtx context.Context
	cancel    context.CancelFunc

	onTerminal  func(*Transfer)
	onCompleted func() error
	removeOnce  sync.Once

	mu    sync.Mutex
	state State
}

// New builds a Transfer around an already-negotiated channel and accessor.
// onTerminal is the parent's self-removal callback: it is invoked exactly
// once, when the transfer reaches a terminal state.
// onCompleted, if non-nil, runs only on a successful finish (e.g. deleting
// the sidecar); its error is logged, not surfaced, since the transfer has
// already succeeded from the peer's point of view.
func New(direction Direction, ch *frame.Channel, acc *blockio.Accessor, log *zap.Logger, onTerminal func(*Transfer), onCompleted func() error) *Transfer {
	if log == nil {
		log = zap.NewNop()
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	t := &Transfer{
		ID:          id,
		Direction:   direction,
		ch:          ch,
		acc:         acc,
		log:         log.With(zap.String("transfer", direction.String()), zap.String("transfer_id", id.String())),
		cancelCtx:   cancelCtx,
		cancel:      cancel,
		onTerminal:  onTerminal,
		onCompleted: onCompleted,
		state:       Streaming,
	}
	t.loop = looptask.New(t.body, t.log)
	return t
}

// State returns the transfer's current position in the state machine.
func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transfer) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Progress exposes the underlying accessor's last-processed-block channel.
func (t *Transfer) Progress() <-chan int32 {
	return t.acc.Progress()
}

// Run starts (or resumes after Pause) one streaming pass. Idempotent under
// concurrent calls via the underlying loop harness.
func (t *Transfer) Run() error {
	return t.loop.Run()
}

// Pause cleanly stops the current streaming pass, preserving sidecar state
// so a later Run resumes from the last durably written block. It does not
// block for the pass to actually stop.
func (t *Transfer) Pause() {
	t.loop.Stop()
}

// Cancel fatally tears down the transfer: the channel and accessor are
// closed immediately, which unblocks any in-flight send/receive/read/write,
// and the transfer moves to Cancelled whether or not a streaming pass was
// in progress.
func (t *Transfer) Cancel() {
	t.cancel()
	t.setState(Cancelled)
	t.finish(false)
	t.loop.Stop()
}

func (t *Transfer) body(pauseCtx context.Context) error {
	t.setState(Streaming)

	var err error
	if t.Direction == Out {
		err = Transmit(pauseCtx, t.cancelCtx, t.ch, t.acc)
	} else {
		err = Receive(pauseCtx, t.cancelCtx, t.ch, t.acc)
	}

	// Once Cancel has fired, every error path — even a closed-connection
	// Io error that raced past the explicit Cancelled check — is reported
	// as Cancelled rather than Failed.
	if err != nil && t.cancelCtx.Err() != nil {
		t.setState(Cancelled)
		t.finish(false)
		return err
	}

	switch {
	case err == nil:
		t.setState(Completed)
		t.finish(true)
	case errors.Is(err, ErrPaused):
		t.setState(Paused)
	default:
		t.log.Warn("transfer failed", zap.Error(err))
		t.setState(Failed)
		t.finish(false)
	}

	return err
}

// finish releases the channel and accessor and invokes the self-removal
// callback exactly once. It never re-enters the parent beyond that single
// callback.
func (t *Transfer) finish(completed bool) {
	t.removeOnce.Do(func() {
		if completed && t.onCompleted != nil {
			if err := t.onCompleted(); err != nil {
				t.log.Warn("post-completion cleanup failed", zap.Error(err))
			}
		}
		_ = t.ch.Close()
		_ = t.acc.Close()
		if t.onTerminal != nil {
			t.onTerminal(t)
		}
	})
}
