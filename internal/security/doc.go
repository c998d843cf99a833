// Package security derives a configuration posture report for the engine:
// the effective cost and lifetime settings plus warnings for values weaker
// than recommended.
package security
