// Package ardentid is a credential and verification engine: Argon2id
// password hashing, TOTP one-time codes bound to short-lived cached secrets,
// and HS256 access tokens, orchestrated into login, registration and
// verification flows.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// ardentid is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([UserStore], [Mailer], [SecretCache]) and
// value types. Secret caching and audit delivery live under internal/ and are
// never exported directly.
//
// # What this package must NOT do
//
//   - Expose Redis clients or cache record encoding in its public API.
//   - Perform I/O outside of Engine methods.
//   - Reveal through Authenticate whether an email is registered.
//   - Log passwords, password hashes, secrets or one-time codes.
package ardentid
