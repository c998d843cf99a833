// Package httpapi is the HTTP surface of the engine: a chi router whose
// handlers decode JSON requests, validate them, call the engine and wrap every
// result in an [Envelope].
//
// Login failures never reveal whether the email exists. A rejected
// verification code is reported with HTTP 200 and response code 4002, since
// the request itself was well formed.
package httpapi
