package pricing

import (
	"errors"
	"math"
	"strings"
)

var ErrNoMatchingRule = errors.New("no pricing rule matches origin, destination and weight")

// Rule is a weight-banded shipping rate. The band is [WeightMin, WeightMax):
// the lower bound is included, the upper bound is not.
type Rule struct {
	ID          uint
	Origin      string
	Destination string
	WeightMin   float64
	WeightMax   float64
	BaseRate    float64
	PerKgRate   float64
	Currency    string
	Active      bool
}

// RateQuote is the result of a rate lookup
type RateQuote struct {
	Rate     float64 `json:"rate"`
	Currency string  `json:"currency"`
	RuleID   uint    `json:"rule_id"`
}

// ComputeRate finds the first active rule for the lane whose band contains
// weightKg and prices against it. Rules are not deduplicated: when bands
// overlap, whichever rule comes first in the slice (store order) wins.
func ComputeRate(rules []Rule, origin, destination string, weightKg float64) (RateQuote, error) {
	if weightKg < 0 || math.IsNaN(weightKg) {
		return RateQuote{}, ErrNoMatchingRule
	}

	for _, r := range rules {
		if !r.Active {
			continue
		}
		if !strings.EqualFold(r.Origin, origin) || !strings.EqualFold(r.Destination, destination) {
			continue
		}
		if weightKg >= r.WeightMin && weightKg < r.WeightMax {
			return RateQuote{
				Rate:     round2(r.BaseRate + weightKg*r.PerKgRate),
				Currency: r.Currency,
				RuleID:   r.ID,
			}, nil
		}
	}
	return RateQuote{}, ErrNoMatchingRule
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
