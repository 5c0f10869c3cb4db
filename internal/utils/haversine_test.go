package utils

import "testing"

func TestHaversineKm(t *testing.T) {
	// Nagpur city center to Amravati, roughly 136 km.
	d := HaversineKm(21.1458, 79.0882, 20.9374, 77.7796)
	if d < 130 || d > 145 {
		t.Fatalf("unexpected distance: %f", d)
	}
	if HaversineKm(21.1458, 79.0882, 21.1458, 79.0882) != 0 {
		t.Fatalf("expected zero distance for identical points")
	}
}

func TestHashStringToUint64Stable(t *testing.T) {
	if HashStringToUint64("case-1") != HashStringToUint64("case-1") {
		t.Fatalf("expected stable hash")
	}
	if HashStringToUint64("case-1") == HashStringToUint64("case-2") {
		t.Fatalf("expected different hashes for different inputs")
	}
}
