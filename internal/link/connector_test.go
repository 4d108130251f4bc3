package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
	"github.com/nerrad567/gray-logic-uplink/internal/events"
)

// fakeDriver reports Connected on the connectAt-th status poll (0 = never).
type fakeDriver struct {
	connectAt int
	beginErr  error

	begins []string
	polls  int
}

func (d *fakeDriver) SetStationMode(context.Context) error { return nil }

func (d *fakeDriver) Begin(_ context.Context, ssid, _ string) error {
	d.begins = append(d.begins, ssid)
	return d.beginErr
}

func (d *fakeDriver) Status(context.Context) State {
	d.polls++
	if d.connectAt > 0 && d.polls >= d.connectAt {
		return Connected
	}
	return Connecting
}

// fakeSleeper records requested waits without sleeping.
type fakeSleeper struct {
	waits []time.Duration
	err   error
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

type recorded struct {
	kind  events.Kind
	value int
}

type fakeRecorder struct{ got []recorded }

func (r *fakeRecorder) Record(kind events.Kind, _ map[string]string, value int) {
	r.got = append(r.got, recorded{kind, value})
}

var home = credentials.Pair{Label: credentials.Primary, SSID: "home", Secret: "passphrase"}

func TestConnect_SucceedsOnThirdPoll(t *testing.T) {
	driver := &fakeDriver{connectAt: 3}
	sleeper := &fakeSleeper{}
	rec := &fakeRecorder{}
	c := NewConnector(driver, sleeper)
	c.SetRecorder(rec)

	if !c.Connect(context.Background(), home, 30, 500*time.Millisecond) {
		t.Fatal("Connect() = false, want true")
	}

	if driver.polls != 3 {
		t.Errorf("status polls = %d, want 3", driver.polls)
	}
	if len(sleeper.waits) != 2 {
		t.Errorf("sleeps = %d, want 2", len(sleeper.waits))
	}
	for _, w := range sleeper.waits {
		if w != 500*time.Millisecond {
			t.Errorf("sleep = %v, want 500ms", w)
		}
	}
	if len(driver.begins) != 1 || driver.begins[0] != "home" {
		t.Errorf("Begin calls = %v, want [home]", driver.begins)
	}
	if len(rec.got) != 1 || rec.got[0] != (recorded{events.LinkConnected, 3}) {
		t.Errorf("recorded = %v, want one LinkConnected at attempt 3", rec.got)
	}
}

func TestConnect_ExhaustsAttempts(t *testing.T) {
	driver := &fakeDriver{}
	sleeper := &fakeSleeper{}
	c := NewConnector(driver, sleeper)

	if c.Connect(context.Background(), home, 30, 500*time.Millisecond) {
		t.Fatal("Connect() = true, want false")
	}

	if driver.polls != 30 {
		t.Errorf("status polls = %d, want 30", driver.polls)
	}
	if len(sleeper.waits) != 30 {
		t.Errorf("sleeps = %d, want 30", len(sleeper.waits))
	}
}

func TestConnect_EmptyPairFailsWithoutRadio(t *testing.T) {
	tests := []struct {
		name string
		pair credentials.Pair
	}{
		{"no ssid no secret", credentials.Pair{Label: credentials.Secondary}},
		{"secret only", credentials.Pair{Label: credentials.Secondary, Secret: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := &fakeDriver{connectAt: 1}
			sleeper := &fakeSleeper{}
			c := NewConnector(driver, sleeper)

			if c.Connect(context.Background(), tt.pair, 30, time.Second) {
				t.Fatal("Connect() = true for empty pair, want false")
			}
			if len(driver.begins) != 0 || driver.polls != 0 {
				t.Errorf("radio touched: begins=%v polls=%d", driver.begins, driver.polls)
			}
			if len(sleeper.waits) > 30 {
				t.Errorf("sleeps = %d, want <= 30", len(sleeper.waits))
			}
		})
	}
}

func TestConnect_BeginError(t *testing.T) {
	driver := &fakeDriver{beginErr: errors.New("radio busy")}
	sleeper := &fakeSleeper{}
	c := NewConnector(driver, sleeper)

	if c.Connect(context.Background(), home, 30, time.Second) {
		t.Fatal("Connect() = true, want false")
	}
	if driver.polls != 0 {
		t.Errorf("status polls = %d after Begin error, want 0", driver.polls)
	}
}

func TestConnect_Cancelled(t *testing.T) {
	driver := &fakeDriver{}
	sleeper := &fakeSleeper{err: context.Canceled}
	c := NewConnector(driver, sleeper)

	if c.Connect(context.Background(), home, 30, time.Second) {
		t.Fatal("Connect() = true, want false")
	}
	if driver.polls != 1 {
		t.Errorf("status polls = %d, want 1 before cancellation", driver.polls)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
