package internaldefs

import "testing"

func TestBucketDefinitionsAgree(t *testing.T) {
	if len(HistogramBounds)+1 != BucketCount {
		t.Fatalf("expected %d finite bounds, got %d", BucketCount-1, len(HistogramBounds))
	}
	if len(HistogramBoundSuffix) != BucketCount {
		t.Fatalf("expected %d suffixes, got %d", BucketCount, len(HistogramBoundSuffix))
	}
	for i := 1; i < len(HistogramBounds); i++ {
		if HistogramBounds[i] <= HistogramBounds[i-1] {
			t.Fatalf("bounds not increasing at %d", i)
		}
	}
}

func TestCounterNamesUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, def := range CounterDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		seen[def.Name] = true
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 0, 3}))
	want := [BucketCount]uint64{1, 3, 3, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
