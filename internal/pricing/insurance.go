package pricing

import "math"

// BasePremium is the minimum insurance charge regardless of declared value.
const BasePremium = 5.00

// ComputeInsurance prices coverage for a declared value. The value-based
// component is 2% of the declared value scaled by service mode and risk
// flags; the customer always pays at least BasePremium.
// Invalid numeric input (negative or NaN) is treated as a zero value.
func ComputeInsurance(declaredValue float64, serviceMode string, isFragile, isHazardous bool) float64 {
	if declaredValue < 0 || math.IsNaN(declaredValue) {
		declaredValue = 0
	}

	modeMult := 1.0
	switch serviceMode {
	case "ocean":
		modeMult = 0.8
	case "local":
		modeMult = 0.6
	}

	fragileMult := 1.0
	if isFragile {
		fragileMult = 1.5
	}
	hazardousMult := 1.0
	if isHazardous {
		hazardousMult = 2.0
	}

	premium := declaredValue * 0.02 * modeMult * fragileMult * hazardousMult
	if premium < BasePremium {
		premium = BasePremium
	}
	return round2(premium)
}
