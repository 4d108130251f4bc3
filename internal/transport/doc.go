// Package transport opens the broker session over an established link.
//
// Reconnector.Reconnect runs bounded bursts of connect attempts separated by
// short retry delays. When a burst is exhausted it rests for a long
// cool-down and starts a new burst; after MaxRestCycles rests without
// success it gives up with a restart request. Counters live in a per-call
// struct, so concurrent or repeated calls never share state.
//
// An attempt counts as successful only when the broker accepts the
// connection and acknowledges the subscription to the command topic.
package transport
