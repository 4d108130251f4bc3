// Package worker runs the device's long-lived concurrent tasks and lets one
// of them suspend the others.
//
// Each worker is declared with a Spec (name, priority, affinity hint) and
// receives a *Handle. Handle.Sleep is the worker's only yield point: it
// blocks for the requested duration and, once the worker has been
// suspended, never returns again until the group's context is cancelled.
// Suspension is therefore observable (Handle.Suspended, Handle.Parked) and
// terminal until the process restarts.
//
//	g := worker.NewGroup(ctx, logger)
//	net, _ := g.Register(worker.Spec{Name: "network", Priority: 1, Affinity: 0})
//	g.Go(net, sup.Run)
//	err := g.Wait() // first worker error, typically a restart request
package worker
