// Package core provides the request pipeline primitives shared by the
// Venice API binding: error classification, retry policies, admission
// control, middleware chaining, lifecycle events, and incremental
// Server-Sent-Events decoding.
//
// Most applications interact with the higher-level venice package and only
// reach into core to configure retry behavior, register middleware, or
// pattern-match on *core.Error.
package core
