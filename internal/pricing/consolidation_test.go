package pricing

import (
	"errors"
	"testing"
	"time"
)

func TestCanConsolidate(t *testing.T) {
	twoPkgs := []PackageSpec{
		{TrackingNumber: "A", CustomerID: 1, WeightKg: 10, LengthCm: 50, WidthCm: 40, HeightCm: 30},
		{TrackingNumber: "B", CustomerID: 1, WeightKg: 20, LengthCm: 60, WidthCm: 50, HeightCm: 40},
	}

	tests := []struct {
		name      string
		pkgs      []PackageSpec
		maxWeight float64
		maxVolume float64
		wantOK    bool
		wantMixed bool
	}{
		{name: "two packages within caps", pkgs: twoPkgs, maxWeight: 100, maxVolume: 10, wantOK: true},
		{name: "single package rejected", pkgs: twoPkgs[:1], maxWeight: 100, maxVolume: 10, wantOK: false},
		{name: "weight cap exceeded", pkgs: twoPkgs, maxWeight: 25, maxVolume: 10, wantOK: false},
		{name: "volume cap exceeded", pkgs: twoPkgs, maxWeight: 100, maxVolume: 0.1, wantOK: false},
		{name: "zero caps mean no caps", pkgs: twoPkgs, wantOK: true},
		{
			name: "multi-customer allowed but flagged",
			pkgs: []PackageSpec{
				{TrackingNumber: "A", CustomerID: 1, WeightKg: 1},
				{TrackingNumber: "B", CustomerID: 2, WeightKg: 1},
			},
			maxWeight: 100, maxVolume: 10,
			wantOK: true, wantMixed: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CanConsolidate(tc.pkgs, tc.maxWeight, tc.maxVolume)
			if got.OK != tc.wantOK {
				t.Errorf("ok: expected %v, got %v (reason: %s)", tc.wantOK, got.OK, got.Reason)
			}
			if got.MixedCustomers != tc.wantMixed {
				t.Errorf("mixed: expected %v, got %v", tc.wantMixed, got.MixedCustomers)
			}
			if !tc.wantOK && got.Reason == "" {
				t.Error("rejection should carry a reason")
			}
		})
	}
}

func TestConsolidateAirChargeableWeight(t *testing.T) {
	// 3 packages, 10/20/30 kg, combined volume 0.5 m3.
	// Chargeable = max(60, 0.5*167=83.5) = 83.5, cost = 83.5*5 = 417.5.
	now := time.Now()
	pkgs := []PackageSpec{
		{TrackingNumber: "A", CustomerID: 1, WeightKg: 10, LengthCm: 100, WidthCm: 100, HeightCm: 20}, // 0.2 m3
		{TrackingNumber: "B", CustomerID: 1, WeightKg: 20, LengthCm: 100, WidthCm: 100, HeightCm: 20}, // 0.2 m3
		{TrackingNumber: "C", CustomerID: 1, WeightKg: 30, LengthCm: 100, WidthCm: 100, HeightCm: 10}, // 0.1 m3
	}

	got, err := Consolidate(pkgs, "air", "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VolumeM3 != 0.5 {
		t.Errorf("volume: expected 0.5, got %v", got.VolumeM3)
	}
	if got.ChargeableWeightKg != 83.5 {
		t.Errorf("chargeable weight: expected 83.5, got %v", got.ChargeableWeightKg)
	}
	if got.Cost != 417.5 {
		t.Errorf("cost: expected 417.5, got %v", got.Cost)
	}
	if want := now.AddDate(0, 0, 7); !got.EstimatedDelivery.Equal(want) {
		t.Errorf("eta: expected %s, got %s", want, got.EstimatedDelivery)
	}
}

func TestConsolidateOcean(t *testing.T) {
	now := time.Now()
	small := []PackageSpec{
		{CustomerID: 1, WeightKg: 100, LengthCm: 200, WidthCm: 200, HeightCm: 200}, // 8 m3
		{CustomerID: 1, WeightKg: 100, LengthCm: 200, WidthCm: 200, HeightCm: 200}, // 8 m3
	}
	big := []PackageSpec{
		{CustomerID: 1, WeightKg: 100, LengthCm: 300, WidthCm: 300, HeightCm: 200}, // 18 m3
		{CustomerID: 1, WeightKg: 100, LengthCm: 300, WidthCm: 300, HeightCm: 200}, // 18 m3
	}

	tests := []struct {
		name          string
		pkgs          []PackageSpec
		ctype         string
		wantCost      float64
		wantContainer string
	}{
		{name: "fcl 20ft under 33m3", pkgs: small, ctype: "fcl", wantCost: 1500, wantContainer: "20ft"},
		{name: "fcl 40ft above 33m3", pkgs: big, ctype: "fcl", wantCost: 2500, wantContainer: "40ft"},
		{name: "lcl per cubic meter", pkgs: small, ctype: "lcl", wantCost: 2400}, // 16 m3 * 150
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Consolidate(tc.pkgs, "ocean", tc.ctype, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cost != tc.wantCost {
				t.Errorf("cost: expected %v, got %v", tc.wantCost, got.Cost)
			}
			if got.ContainerSize != tc.wantContainer {
				t.Errorf("container: expected %q, got %q", tc.wantContainer, got.ContainerSize)
			}
			if want := now.AddDate(0, 0, 30); !got.EstimatedDelivery.Equal(want) {
				t.Errorf("eta: expected %s, got %s", want, got.EstimatedDelivery)
			}
		})
	}
}

func TestConsolidateLocalAndErrors(t *testing.T) {
	now := time.Now()
	pkgs := []PackageSpec{
		{CustomerID: 1, WeightKg: 1},
		{CustomerID: 2, WeightKg: 2},
		{CustomerID: 1, WeightKg: 3},
	}

	got, err := Consolidate(pkgs, "local", "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cost != 30 { // $10 per package
		t.Errorf("cost: expected 30, got %v", got.Cost)
	}
	if !got.MixedCustomers {
		t.Error("expected mixed customers flag")
	}

	if _, err := Consolidate(pkgs, "teleport", "", now); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}
