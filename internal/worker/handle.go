package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// AnyCore is the Affinity value for a worker with no thread affinity.
const AnyCore = -1

// Spec declares a worker.
type Spec struct {
	Name string

	// Priority is advisory; the Go scheduler has no task priorities. It is
	// recorded and logged so the layout stays visible in diagnostics.
	Priority int

	// Affinity >= 0 runs the worker on a dedicated OS thread. The value
	// itself is a hint for the operator, not a CPU number.
	Affinity int
}

// Sleeper is a blocking, cancellable wait. *Handle implements it.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Handle is a worker's view of its own scheduling state.
type Handle struct {
	spec Spec

	suspendOnce sync.Once
	suspendCh   chan struct{}

	parkOnce sync.Once
	parkedCh chan struct{}

	started   atomic.Bool
	suspended atomic.Bool
	yields    atomic.Uint64
}

func newHandle(spec Spec) *Handle {
	return &Handle{
		spec:      spec,
		suspendCh: make(chan struct{}),
		parkedCh:  make(chan struct{}),
	}
}

// Name returns the worker name.
func (h *Handle) Name() string { return h.spec.Name }

// Spec returns the worker declaration.
func (h *Handle) Spec() Spec { return h.spec }

// Suspended reports whether the worker has been asked to suspend.
func (h *Handle) Suspended() bool { return h.suspended.Load() }

// Parked returns a channel closed once the worker has stopped at a yield
// point after suspension, or has exited.
func (h *Handle) Parked() <-chan struct{} { return h.parkedCh }

// Yields returns the number of completed Sleep calls.
func (h *Handle) Yields() uint64 { return h.yields.Load() }

// Sleep blocks for d. It returns ctx.Err() if ctx is cancelled first. If the
// worker is suspended before or during the wait, Sleep parks: it returns
// only when ctx is cancelled.
func (h *Handle) Sleep(ctx context.Context, d time.Duration) error {
	if err := h.checkpoint(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.suspendCh:
		return h.park(ctx)
	}

	// Suspension that raced the timer still wins.
	if err := h.checkpoint(ctx); err != nil {
		return err
	}
	h.yields.Add(1)
	return nil
}

func (h *Handle) checkpoint(ctx context.Context) error {
	select {
	case <-h.suspendCh:
		return h.park(ctx)
	default:
		return ctx.Err()
	}
}

func (h *Handle) park(ctx context.Context) error {
	h.markParked()
	<-ctx.Done()
	return ctx.Err()
}

func (h *Handle) suspend() {
	h.suspendOnce.Do(func() {
		h.suspended.Store(true)
		close(h.suspendCh)
	})
}

func (h *Handle) markParked() {
	h.parkOnce.Do(func() { close(h.parkedCh) })
}
