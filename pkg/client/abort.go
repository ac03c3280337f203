package client

import (
	"context"
	"sync"
)

// AbortHandle cancels one mounted session. It is safe to call Abort from
// any goroutine, any number of times.
type AbortHandle struct {
	ctx    context.Context
	cancel context.CancelFunc

	once    sync.Once
	onAbort func()
}

func newAbortHandle(parent context.Context, onAbort func()) *AbortHandle {
	ctx, cancel := context.WithCancel(parent)
	return &AbortHandle{ctx: ctx, cancel: cancel, onAbort: onAbort}
}

// Abort closes the connection. Only the first call has an effect; once it
// returns the session no longer mutates its state.
func (h *AbortHandle) Abort() {
	h.once.Do(func() {
		if h.onAbort != nil {
			h.onAbort()
		}
		h.cancel()
	})
}

// Aborted reports whether the connection context has ended: Abort was
// called, the session finished, or the parent context was cancelled.
func (h *AbortHandle) Aborted() bool {
	return h.ctx.Err() != nil
}

// Context is cancelled by Abort. Every request of the session uses it.
func (h *AbortHandle) Context() context.Context {
	return h.ctx
}
