package internaldefs

import (
	"testing"

	"github.com/messline/messauth"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		seen[def.Name] = true
		if def.Help == "" {
			t.Fatalf("metric %s has no help", def.Name)
		}
	}
	if got, want := len(CounterDefs), int(messauth.MetricAuthorizeLatency); got != want {
		t.Fatalf("expected %d counters, got %d", want, got)
	}
	if CounterDefs[0].Name != "messauth_register_success_total" {
		t.Fatalf("unexpected first counter %q", CounterDefs[0].Name)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets([]uint64{1, 0, 2, 3})
	want := []uint64{1, 1, 3, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: want %d, got %d", i, want[i], got[i])
		}
	}
}

func TestUpperBounds(t *testing.T) {
	b := UpperBounds()
	if len(b) != len(messauth.HistogramBounds) || b[0] != 0.005 || b[len(b)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestBoundLabels(t *testing.T) {
	labels := BoundLabels()
	if len(labels) != len(messauth.HistogramBounds)+1 {
		t.Fatalf("expected %d labels, got %d", len(messauth.HistogramBounds)+1, len(labels))
	}
	if labels[0] != "5ms" || labels[len(labels)-1] != "inf" {
		t.Fatalf("unexpected labels %v", labels)
	}
}
