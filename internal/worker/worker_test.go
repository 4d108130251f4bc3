package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegister(t *testing.T) {
	g := NewGroup(context.Background(), nil)

	if _, err := g.Register(Spec{Name: "network", Affinity: AnyCore}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := g.Register(Spec{Name: "network"}); !errors.Is(err, ErrDuplicateWorker) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateWorker", err)
	}
	if _, err := g.Register(Spec{}); !errors.Is(err, ErrUnnamedWorker) {
		t.Errorf("unnamed Register() error = %v, want ErrUnnamedWorker", err)
	}

	names := g.Names()
	if len(names) != 1 || names[0] != "network" {
		t.Errorf("Names() = %v, want [network]", names)
	}
}

func TestHandle_Sleep(t *testing.T) {
	h := newHandle(Spec{Name: "main"})

	start := time.Now()
	if err := h.Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Sleep() returned after %v, want >= 5ms", elapsed)
	}
	if h.Yields() != 1 {
		t.Errorf("Yields() = %d, want 1", h.Yields())
	}
}

func TestHandle_SleepCancelled(t *testing.T) {
	h := newHandle(Spec{Name: "main"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}

func TestHandle_SuspendedSleepParks(t *testing.T) {
	h := newHandle(Spec{Name: "main"})
	h.suspend()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Sleep(ctx, time.Millisecond) }()

	select {
	case <-h.Parked():
	case <-time.After(time.Second):
		t.Fatal("handle did not park")
	}

	select {
	case <-done:
		t.Fatal("Sleep() returned while suspended")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}

func TestGroup_SuspendOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := NewGroup(ctx, nil)

	var pumps atomic.Int64
	net, _ := g.Register(Spec{Name: "network", Affinity: 0})
	app, _ := g.Register(Spec{Name: "main", Affinity: AnyCore})
	mon, _ := g.Register(Spec{Name: "reconfig", Affinity: AnyCore})

	loop := func(h *Handle) Func {
		return func(ctx context.Context) error {
			for {
				pumps.Add(1)
				if err := h.Sleep(ctx, time.Millisecond); err != nil {
					return err
				}
			}
		}
	}
	g.Go(net, loop(net))
	g.Go(app, loop(app))

	suspended := make(chan error, 1)
	g.Go(mon, func(ctx context.Context) error {
		if err := mon.Sleep(ctx, 10*time.Millisecond); err != nil {
			return err
		}
		suspended <- g.SuspendOthers(ctx, mon)
		<-ctx.Done()
		return ctx.Err()
	})

	if err := <-suspended; err != nil {
		t.Fatalf("SuspendOthers() error = %v", err)
	}
	if !net.Suspended() || !app.Suspended() {
		t.Error("targets not marked suspended")
	}
	if mon.Suspended() {
		t.Error("monitor suspended itself")
	}

	before := pumps.Load()
	time.Sleep(30 * time.Millisecond)
	if after := pumps.Load(); after != before {
		t.Errorf("suspended workers ran %d more iterations", after-before)
	}

	cancel()
	if err := g.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestGroup_SuspendUnstartedWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := NewGroup(ctx, nil)

	mon, _ := g.Register(Spec{Name: "reconfig", Affinity: AnyCore})
	idle, _ := g.Register(Spec{Name: "secondary", Affinity: AnyCore})

	if err := g.SuspendOthers(ctx, mon); err != nil {
		t.Fatalf("SuspendOthers() error = %v", err)
	}

	ran := false
	g.Go(idle, func(context.Context) error {
		ran = true
		return nil
	})
	cancel()
	_ = g.Wait()

	if ran {
		t.Error("worker started after suspension ran its body")
	}
}

func TestGroup_SuspendOthersUnknownHandle(t *testing.T) {
	g := NewGroup(context.Background(), nil)
	stranger := newHandle(Spec{Name: "stranger"})

	if err := g.SuspendOthers(context.Background(), stranger); !errors.Is(err, ErrUnknownWorker) {
		t.Errorf("SuspendOthers() error = %v, want ErrUnknownWorker", err)
	}
}

func TestGroup_FirstErrorCancelsOthers(t *testing.T) {
	g := NewGroup(context.Background(), nil)
	fatal := errors.New("fatal restart")

	a, _ := g.Register(Spec{Name: "network", Affinity: AnyCore})
	b, _ := g.Register(Spec{Name: "main", Affinity: AnyCore})

	g.Go(a, func(ctx context.Context) error {
		if err := a.Sleep(ctx, time.Millisecond); err != nil {
			return err
		}
		return fatal
	})
	g.Go(b, func(ctx context.Context) error {
		for {
			if err := b.Sleep(ctx, time.Millisecond); err != nil {
				return err
			}
		}
	})

	if err := g.Wait(); !errors.Is(err, fatal) {
		t.Errorf("Wait() error = %v, want %v", err, fatal)
	}
}
