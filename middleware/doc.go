// Package middleware holds the HTTP middleware used in front of the engine.
//
//   - [Guard] verifies a Bearer access token with the engine and stores the
//     claims in the request context.
//   - [Txn] copies the chi request ID and client IP into the context so that
//     engine audit events and log lines carry them.
//   - [AccessLog] writes one zap line per request.
//
// The middleware never issues tokens or touches the user store.
package middleware
