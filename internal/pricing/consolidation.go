package pricing

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownMode = errors.New("unknown consolidation service mode")

// Volumetric conversion factor for air freight (kg per m³).
const airVolumetricFactor = 167.0

// PackageSpec is the slice of a package that consolidation needs.
type PackageSpec struct {
	TrackingNumber string
	CustomerID     uint
	WeightKg       float64
	DeclaredValue  float64
	LengthCm       float64
	WidthCm        float64
	HeightCm       float64
}

// volumeM3 converts per-package centimeter dimensions to cubic meters.
func (p PackageSpec) volumeM3() float64 {
	return p.LengthCm * p.WidthCm * p.HeightCm / 1_000_000
}

// CheckResult says whether a set of packages can be grouped into one
// shipment. Mixing packages from different customers is allowed but
// flagged so staff can confirm.
type CheckResult struct {
	OK             bool   `json:"ok"`
	Reason         string `json:"reason,omitempty"`
	MixedCustomers bool   `json:"mixed_customers"`
}

// CanConsolidate requires at least two packages and aggregate weight and
// volume within the caps. A cap of zero means "no cap".
func CanConsolidate(pkgs []PackageSpec, maxWeightKg, maxVolumeM3 float64) CheckResult {
	if len(pkgs) < 2 {
		return CheckResult{OK: false, Reason: "at least 2 packages are required"}
	}

	var totalWeight, totalVolume float64
	customers := map[uint]bool{}
	for _, p := range pkgs {
		totalWeight += p.WeightKg
		totalVolume += p.volumeM3()
		customers[p.CustomerID] = true
	}

	res := CheckResult{OK: true, MixedCustomers: len(customers) > 1}
	if maxWeightKg > 0 && totalWeight > maxWeightKg {
		return CheckResult{
			OK:             false,
			Reason:         fmt.Sprintf("combined weight %.2fkg exceeds cap %.2fkg", totalWeight, maxWeightKg),
			MixedCustomers: res.MixedCustomers,
		}
	}
	if maxVolumeM3 > 0 && totalVolume > maxVolumeM3 {
		return CheckResult{
			OK:             false,
			Reason:         fmt.Sprintf("combined volume %.3fm3 exceeds cap %.3fm3", totalVolume, maxVolumeM3),
			MixedCustomers: res.MixedCustomers,
		}
	}
	return res
}

// Consolidation is the priced shipment unit.
type Consolidation struct {
	Packages           int       `json:"packages"`
	TotalWeightKg      float64   `json:"total_weight_kg"`
	TotalValue         float64   `json:"total_value"`
	VolumeM3           float64   `json:"volume_m3"`
	ChargeableWeightKg float64   `json:"chargeable_weight_kg,omitempty"`
	ContainerSize      string    `json:"container_size,omitempty"`
	Cost               float64   `json:"cost"`
	Currency           string    `json:"currency"`
	EstimatedDelivery  time.Time `json:"estimated_delivery"`
	MixedCustomers     bool      `json:"mixed_customers"`
}

// Consolidate groups packages into one shipment and prices it by mode.
//   - ocean + "fcl": flat rate by container size (<=33m3 -> 20ft $1500,
//     else 40ft $2500)
//   - ocean (lcl):  $150 per m3
//   - air:          $5 per chargeable kg, chargeable = max(actual, vol*167)
//   - local:        $10 flat per package
//
// The delivery estimate adds a fixed mode lead time to now: ocean 30d,
// air 7d, local 3d.
func Consolidate(pkgs []PackageSpec, serviceMode, consolidationType string, now time.Time) (Consolidation, error) {
	result := Consolidation{
		Packages: len(pkgs),
		Currency: "USD",
	}

	customers := map[uint]bool{}
	for _, p := range pkgs {
		result.TotalWeightKg += p.WeightKg
		result.TotalValue += p.DeclaredValue
		result.VolumeM3 += p.volumeM3()
		customers[p.CustomerID] = true
	}
	result.MixedCustomers = len(customers) > 1

	switch serviceMode {
	case "ocean":
		if consolidationType == "fcl" {
			if result.VolumeM3 <= 33 {
				result.ContainerSize = "20ft"
				result.Cost = 1500
			} else {
				result.ContainerSize = "40ft"
				result.Cost = 2500
			}
		} else {
			result.Cost = round2(150 * result.VolumeM3)
		}
		result.EstimatedDelivery = now.AddDate(0, 0, 30)
	case "air":
		chargeable := result.TotalWeightKg
		if volumetric := result.VolumeM3 * airVolumetricFactor; volumetric > chargeable {
			chargeable = volumetric
		}
		result.ChargeableWeightKg = round2(chargeable)
		result.Cost = round2(chargeable * 5)
		result.EstimatedDelivery = now.AddDate(0, 0, 7)
	case "local":
		result.Cost = round2(10 * float64(len(pkgs)))
		result.EstimatedDelivery = now.AddDate(0, 0, 3)
	default:
		return Consolidation{}, ErrUnknownMode
	}

	result.TotalWeightKg = round2(result.TotalWeightKg)
	result.TotalValue = round2(result.TotalValue)
	return result, nil
}
