// Package authevents provides guard.Emitter sinks: structured logging,
// Prometheus counters and a fan-out combinator.
package authevents
