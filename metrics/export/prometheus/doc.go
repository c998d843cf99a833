// Package prometheus exposes engine metrics through client_golang.
//
// [Collector] implements prometheus.Collector over Engine.MetricsSnapshot.
// Counters are published as ardentid_*_total and the password hashing
// histogram as ardentid_password_hash_seconds. The collector is never
// registered globally; callers register it or use [Collector.Handler].
package prometheus
