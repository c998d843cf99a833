// Package otp generates and validates time-based one-time codes (RFC 6238).
//
// Codes are HMAC-based (RFC 4226) over the number of whole periods since the
// Unix epoch. Validation accepts the current step and Config.Skew steps on
// either side, compares candidates in constant time and treats any code that
// is not exactly Config.Digits ASCII digits as a mismatch rather than an
// error.
//
// The package has no storage. Callers own secret persistence and single-use
// enforcement.
package otp
