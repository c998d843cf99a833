// Package audit delivers security-relevant engine events to pluggable sinks.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zap, no-op).
//   - [Dispatcher]: buffered asynchronous relay with drop-if-full accounting.
//   - [Event]: one login, registration or verification outcome.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. The engine decides which events
// to emit and what they contain.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import the root package or any sibling internal package.
//   - Carry secrets, one-time codes or password material in events.
package audit
