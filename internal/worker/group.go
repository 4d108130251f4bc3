package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Func is the body of a worker. It should loop until ctx is cancelled or it
// has a terminal error to report.
type Func func(ctx context.Context) error

// Logger defines the logging interface for the worker group.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Group runs a set of named workers. The first worker to return a non-nil
// error cancels the others, and Wait returns that error.
type Group struct {
	eg     *errgroup.Group
	ctx    context.Context
	logger Logger

	mu      sync.Mutex
	handles []*Handle
	byName  map[string]*Handle
}

// NewGroup creates a Group bound to ctx. A nil logger is allowed.
func NewGroup(ctx context.Context, logger Logger) *Group {
	if logger == nil {
		logger = noopLogger{}
	}
	eg, gctx := errgroup.WithContext(ctx)
	return &Group{
		eg:     eg,
		ctx:    gctx,
		logger: logger,
		byName: make(map[string]*Handle),
	}
}

// Register declares a worker and returns its handle. The handle can be
// passed to components as their Sleeper before the worker starts.
func (g *Group) Register(spec Spec) (*Handle, error) {
	if spec.Name == "" {
		return nil, ErrUnnamedWorker
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.byName[spec.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateWorker, spec.Name)
	}

	h := newHandle(spec)
	g.handles = append(g.handles, h)
	g.byName[spec.Name] = h
	return h, nil
}

// Go starts fn as the worker behind h.
func (g *Group) Go(h *Handle, fn Func) {
	h.started.Store(true)
	g.eg.Go(func() error {
		if h.Suspended() {
			h.markParked()
			return nil
		}
		if h.spec.Affinity >= 0 {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		defer h.markParked()

		g.logger.Info("worker started",
			"worker", h.spec.Name,
			"priority", h.spec.Priority,
			"affinity", h.spec.Affinity,
		)

		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.logger.Warn("worker stopped", "worker", h.spec.Name, "error", err)
		}
		return err
	})
}

// Wait blocks until every worker has returned and returns the first error.
func (g *Group) Wait() error {
	return g.eg.Wait()
}

// Names returns the registered worker names in registration order.
func (g *Group) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.handles))
	for _, h := range g.handles {
		names = append(names, h.spec.Name)
	}
	return names
}

// SuspendOthers suspends every registered worker except self and waits
// until each one is parked at a yield point or has exited. After it returns
// nil, no other worker runs again until the context is cancelled.
func (g *Group) SuspendOthers(ctx context.Context, self *Handle) error {
	g.mu.Lock()
	if g.byName[self.spec.Name] != self {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWorker, self.spec.Name)
	}
	targets := make([]*Handle, 0, len(g.handles))
	for _, h := range g.handles {
		if h != self {
			targets = append(targets, h)
		}
	}
	g.mu.Unlock()

	for _, h := range targets {
		h.suspend()
		if !h.started.Load() {
			h.markParked()
		}
		g.logger.Info("worker suspended", "worker", h.spec.Name, "by", self.spec.Name)
	}

	for _, h := range targets {
		select {
		case <-h.parkedCh:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to park: %w", h.spec.Name, ctx.Err())
		}
	}
	return nil
}
