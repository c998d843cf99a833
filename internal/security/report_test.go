package security

import (
	"strings"
	"testing"
	"time"
)

func strongInput() ReportInput {
	return ReportInput{
		SigningKeyBytes: 32,
		TokenTTL:        time.Hour,
		Issuer:          "ardentid",
		Audience:        "api",
		Password:        PasswordReport{Memory: 128 * 1024, Time: 4, Parallelism: 8, SaltLength: 16, KeyLength: 32},
		OTPPeriod:       300 * time.Second,
		OTPDigits:       6,
		OTPSkew:         1,
		SecretTTL:       5 * time.Minute,
		SecretCache:     "redis",
	}
}

func TestBuildReportNoWarnings(t *testing.T) {
	r := BuildReport(strongInput())
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", r.Warnings)
	}
	if r.SigningAlgorithm != "HS256" || !r.IssuerSet || !r.AudienceSet {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestBuildReportWarnings(t *testing.T) {
	cases := map[string]struct {
		mutate func(*ReportInput)
		want   string
	}{
		"short key":    {func(in *ReportInput) { in.SigningKeyBytes = 16 }, "jwt secret"},
		"weak argon2":  {func(in *ReportInput) { in.Password.Memory = 8192 }, "argon2 memory"},
		"long token":   {func(in *ReportInput) { in.TokenTTL = 48 * time.Hour }, "token lifetime"},
		"long secret":  {func(in *ReportInput) { in.SecretTTL = time.Hour }, "otp secret ttl"},
		"memory cache": {func(in *ReportInput) { in.SecretCache = "memory" }, "per process"},
		"no audience":  {func(in *ReportInput) { in.Audience = "" }, "audience"},
	}

	for name, tc := range cases {
		in := strongInput()
		tc.mutate(&in)
		r := BuildReport(in)
		if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], tc.want) {
			t.Fatalf("%s: expected one warning containing %q, got %v", name, tc.want, r.Warnings)
		}
	}
}
