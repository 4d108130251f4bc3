package events

import "testing"

func TestKind_IsFailure(t *testing.T) {
	failures := []Kind{LinkAttemptFailed, SessionOpenFailed, RetryCeilingReached, RestCeilingReached, PortalFailed}
	for _, k := range failures {
		if !k.IsFailure() {
			t.Errorf("%s.IsFailure() = false, want true", k)
		}
	}

	info := []Kind{LinkConnected, SessionOpened, RestCycle, ReconfigRequested, Heartbeat}
	for _, k := range info {
		if k.IsFailure() {
			t.Errorf("%s.IsFailure() = true, want false", k)
		}
	}
}
