package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/ardentid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	counters map[ardentid.MetricID]uint64
	latency  []uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() ardentid.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := ardentid.MetricsSnapshot{
		Counters:   make(map[ardentid.MetricID]uint64, len(f.counters)),
		Histograms: map[ardentid.MetricID][]uint64{ardentid.MetricPasswordHashLatency: append([]uint64(nil), f.latency...)},
	}
	for k, v := range f.counters {
		out.Counters[k] = v
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Value
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Value
				}
			}
		}
	}
	return out
}

func TestExporterPublishesSnapshot(t *testing.T) {
	reader, provider := newReader(t)
	src := &fakeSource{
		counters: map[ardentid.MetricID]uint64{ardentid.MetricLoginSuccess: 3, ardentid.MetricOTPIssued: 5},
		latency:  []uint64{1, 1, 0, 0, 0, 0, 0, 2},
		dropped:  1,
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("ardentid-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	got := collect(t, reader)
	checks := map[string]int64{
		"ardentid_login_success_total":                   3,
		"ardentid_otp_issued_total":                      5,
		"ardentid_register_success_total":                0,
		"ardentid_audit_dropped_total":                   1,
		"ardentid_password_hash_seconds_bucket_le_0_025": 1,
		"ardentid_password_hash_seconds_bucket_le_0_05":  2,
		"ardentid_password_hash_seconds_bucket_le_inf":   4,
		"ardentid_password_hash_seconds_count":           4,
	}
	for name, want := range checks {
		if got[name] != want {
			t.Fatalf("%s: expected %d, got %d", name, want, got[name])
		}
	}
}

func TestExporterRejectsNil(t *testing.T) {
	_, provider := newReader(t)

	if _, err := NewOTelExporterFromSource(provider.Meter("x"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewOTelExporter(provider.Meter("x"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterCloseStopsObservation(t *testing.T) {
	reader, provider := newReader(t)
	src := &fakeSource{counters: map[ardentid.MetricID]uint64{ardentid.MetricLoginSuccess: 7}}

	exp, err := NewOTelExporterFromSource(provider.Meter("ardentid-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := collect(t, reader); got["ardentid_login_success_total"] != 0 {
		t.Fatalf("expected no observation after Close, got %d", got["ardentid_login_success_total"])
	}
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReader(t)
	src := &fakeSource{counters: map[ardentid.MetricID]uint64{}}

	exp, err := NewOTelExporterFromSource(provider.Meter("ardentid-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.counters[ardentid.MetricLoginFailure] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
