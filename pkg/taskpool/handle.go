package taskpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Handle is the caller's view of a submitted task.
type Handle[T any] struct {
	taskType string
	done     chan struct{}
	cancel   context.CancelCauseFunc
	timedOut atomic.Bool

	mu       sync.Mutex
	resolved bool
	timer    *time.Timer
	value    T
	err      error
}

// TaskType returns the type the task was submitted with.
func (h *Handle[T]) TaskType() string { return h.taskType }

// Done is closed once the task's result is available.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Wait blocks until the task resolves or ctx ends. Giving up on the wait
// does not cancel the task; use Cancel for that.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel asks the task to stop. It has the same effect as a deadline: the
// work observes a cancelled context and decides what to return.
func (h *Handle[T]) Cancel() {
	h.cancel(context.Canceled)
}

// TimedOut reports whether the task's deadline elapsed before it resolved.
func (h *Handle[T]) TimedOut() bool { return h.timedOut.Load() }

// arm starts the deadline timer unless the task already resolved.
func (h *Handle[T]) arm(d time.Duration, onTimeout func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return
	}
	h.timer = time.AfterFunc(d, onTimeout)
}

// expire flips the cancellation flag if the task is still pending and
// reports whether it did.
func (h *Handle[T]) expire() bool {
	h.mu.Lock()
	pending := !h.resolved
	h.mu.Unlock()
	if !pending {
		return false
	}
	h.timedOut.Store(true)
	h.cancel(ErrTaskTimeout)
	return true
}

func (h *Handle[T]) resolve(v T, err error) {
	h.mu.Lock()
	if h.resolved {
		h.mu.Unlock()
		return
	}
	h.resolved = true
	h.value = v
	h.err = err
	timer := h.timer
	h.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	close(h.done)
	h.cancel(nil)
}
