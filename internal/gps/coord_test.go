package gps

import (
	"math"
	"testing"
)

func TestToDecimalDegrees(t *testing.T) {
	cases := []struct {
		raw  string
		hemi byte
		want float64
	}{
		{"4916.45", 'N', 49.274167},
		{"4916.45", 'S', -49.274167},
		{"12311.12", 'E', 123.185333},
		{"12311.12", 'W', -123.185333},
		{"4807.038", 'N', 48.1173},
		{"00030.0", 'W', -0.5},
		{"4916.45", 0, 49.274167},
	}
	for _, tc := range cases {
		got := ToDecimalDegrees(tc.raw, tc.hemi)
		if math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("ToDecimalDegrees(%q,%q)=%v want %v", tc.raw, tc.hemi, got, tc.want)
		}
	}
}

func TestToDecimalDegrees_Invalid(t *testing.T) {
	for _, raw := range []string{"", "4916", "5.0", "ab16.45", "49xx.45"} {
		if got := ToDecimalDegrees(raw, 'N'); got != 0 {
			t.Fatalf("ToDecimalDegrees(%q)=%v want 0", raw, got)
		}
	}
}
