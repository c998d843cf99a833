package internaldefs

import (
	"github.com/MrEthical07/ardentid"
)

// BucketCount is the number of histogram buckets in an engine snapshot,
// including the +Inf bucket.
const BucketCount = 8

// AuditDroppedName and AuditDroppedHelp describe the dispatcher drop counter,
// which is read from the engine directly rather than from the snapshot.
const (
	AuditDroppedName = "ardentid_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

type CounterDef struct {
	ID   ardentid.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   ardentid.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: ardentid.MetricLoginSuccess, Name: "ardentid_login_success_total", Help: "Successful logins."},
	{ID: ardentid.MetricLoginFailure, Name: "ardentid_login_failure_total", Help: "Failed logins (unknown email or wrong password)."},
	{ID: ardentid.MetricRegisterSuccess, Name: "ardentid_register_success_total", Help: "Accounts registered."},
	{ID: ardentid.MetricRegisterDuplicate, Name: "ardentid_register_duplicate_total", Help: "Registrations rejected because the email was taken."},
	{ID: ardentid.MetricOTPIssued, Name: "ardentid_otp_issued_total", Help: "Verification codes issued and mailed."},
	{ID: ardentid.MetricOTPSendFailure, Name: "ardentid_otp_send_failure_total", Help: "Verification codes whose mail could not be delivered."},
	{ID: ardentid.MetricOTPVerifySuccess, Name: "ardentid_otp_verify_success_total", Help: "Verification codes accepted."},
	{ID: ardentid.MetricOTPVerifyFailure, Name: "ardentid_otp_verify_failure_total", Help: "Verification codes rejected."},
	{ID: ardentid.MetricDependencyFailure, Name: "ardentid_dependency_failure_total", Help: "Operations failed by a store, cache or signer error."},
}

var HistogramDefs = []HistogramDef{
	{ID: ardentid.MetricPasswordHashLatency, Name: "ardentid_password_hash_seconds", Help: "Argon2id derivation latency."},
}

// HistogramBounds are the finite upper bounds in seconds; the last snapshot
// bucket is +Inf.
var HistogramBounds = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// publish one instrument per bucket.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding or truncating.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
