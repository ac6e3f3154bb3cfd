package pricing

import (
	"math"
	"testing"
)

func TestComputeInsurance(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		mode      string
		fragile   bool
		hazardous bool
		want      float64
	}{
		{name: "zero value returns base premium", value: 0, mode: "air", want: 5.00},
		{name: "small value still floored at base premium", value: 100, mode: "air", want: 5.00}, // 2.00 < 5.00
		{name: "air plain", value: 1000, mode: "air", want: 20.00},
		{name: "ocean discount", value: 1000, mode: "ocean", want: 16.00},
		{name: "local discount", value: 1000, mode: "local", want: 12.00},
		{name: "fragile multiplier", value: 1000, mode: "air", fragile: true, want: 30.00},
		{name: "hazardous multiplier", value: 1000, mode: "air", hazardous: true, want: 40.00},
		{name: "all multipliers stack", value: 1000, mode: "ocean", fragile: true, hazardous: true, want: 48.00},
		{name: "negative value treated as zero", value: -500, mode: "air", want: 5.00},
		{name: "NaN treated as zero", value: math.NaN(), mode: "air", want: 5.00},
		{name: "unknown mode behaves like air", value: 1000, mode: "pigeon", want: 20.00},
		{name: "rounds to 2 decimals", value: 123.45, mode: "air", fragile: true, want: 5.00}, // 3.7035 floored
		{name: "rounding above the floor", value: 777.77, mode: "air", want: 15.56},           // 15.5554
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeInsurance(tc.value, tc.mode, tc.fragile, tc.hazardous)
			if got != tc.want {
				t.Errorf("expected %.2f, got %.2f", tc.want, got)
			}
		})
	}
}

// Doubling the declared value should roughly double the value-based
// component once clear of the base-premium floor.
func TestComputeInsuranceScalesLinearly(t *testing.T) {
	base := ComputeInsurance(1000, "air", false, false)
	double := ComputeInsurance(2000, "air", false, false)
	if math.Abs(double-2*base) > 0.01 {
		t.Errorf("expected ~%.2f for doubled value, got %.2f", 2*base, double)
	}
}
