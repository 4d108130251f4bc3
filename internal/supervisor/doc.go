// Package supervisor keeps the device on a network and its broker session
// open.
//
// Each Step reads the link state and does the next piece of work:
//
//	LinkDown       join the primary network, then the secondary; rest or
//	               ask for a restart after repeated failures
//	TransportDown  reopen the broker session (blocks in the reconnector)
//	TransportUp    pump the session and yield briefly
//
// Stored credentials are re-read on every link attempt, so pairs saved by
// the provisioning portal take effect without a restart.
package supervisor
