// Package stores provides the short-lived secret caches behind one-time code
// verification.
//
// # Design
//
// Entries are keyed by (purpose, email), hold the raw HMAC secret and expire
// after a fixed TTL. Two backends share one contract:
//
//   - [RedisSecretCache] stores a versioned binary record with both a key TTL
//     and an embedded deadline, so a record read late is still treated as
//     absent.
//   - [MemorySecretCache] wraps go-cache for single-process deployments and
//     tests.
//
// Remove takes the secret the caller read and deletes the entry only if it
// still holds that secret (a Lua script on Redis, the stripe lock in memory).
// Verification relies on this so exactly one of several concurrent callers
// consumes a code, and a code issued in the meantime is left intact.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Log or expose secrets.
//   - Decide whether a code is valid.
package stores
