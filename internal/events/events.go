// Package events defines the connectivity event taxonomy shared by the
// supervisor, the reconnector and the reconfiguration monitor.
//
// Failures never propagate as errors between components; they are logged and
// recorded here, and only a restart request escapes a worker.
package events

// Kind identifies a connectivity event.
type Kind string

// Failure kinds.
const (
	LinkAttemptFailed   Kind = "link_attempt_failed"
	SessionOpenFailed   Kind = "session_open_failed"
	RetryCeilingReached Kind = "retry_ceiling_reached"
	RestCeilingReached  Kind = "rest_ceiling_reached"
	PortalFailed        Kind = "portal_failed"
)

// Informational kinds.
const (
	LinkConnected     Kind = "link_connected"
	SessionOpened     Kind = "session_opened"
	RestCycle         Kind = "rest_cycle"
	ReconfigRequested Kind = "reconfig_requested"
	Heartbeat         Kind = "heartbeat"
)

// IsFailure reports whether k is one of the failure kinds.
func (k Kind) IsFailure() bool {
	switch k {
	case LinkAttemptFailed, SessionOpenFailed, RetryCeilingReached, RestCeilingReached, PortalFailed:
		return true
	}
	return false
}

// Recorder receives connectivity events. Implementations must not block.
type Recorder interface {
	Record(kind Kind, tags map[string]string, value int)
}

// Nop discards events.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Kind, map[string]string, int) {}
