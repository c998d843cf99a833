// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are stored as a single standard-base64 blob:
//
//	base64( salt[16] || argon2id(password, salt)[32] )
//
// The envelope carries no algorithm or cost parameters. Verification always
// re-derives with the hasher's own [Config], so changing the cost parameters
// invalidates every previously stored envelope.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// character classes) is enforced by the API layer.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive envelopes.
//   - Import any other ardentid package.
//   - Log plaintext passwords or envelopes at runtime.
package password
