package pricing

import (
	"errors"
	"testing"
)

func testRules() []Rule {
	return []Rule{
		{ID: 1, Origin: "USA", Destination: "Jamaica", WeightMin: 0, WeightMax: 5, BaseRate: 10, PerKgRate: 4, Currency: "USD", Active: true},
		{ID: 2, Origin: "USA", Destination: "Jamaica", WeightMin: 5, WeightMax: 20, BaseRate: 15, PerKgRate: 3, Currency: "USD", Active: true},
		{ID: 3, Origin: "USA", Destination: "Jamaica", WeightMin: 5, WeightMax: 50, BaseRate: 99, PerKgRate: 9, Currency: "USD", Active: true}, // overlaps rule 2
		{ID: 4, Origin: "UK", Destination: "Jamaica", WeightMin: 0, WeightMax: 30, BaseRate: 20, PerKgRate: 6, Currency: "GBP", Active: true},
		{ID: 5, Origin: "USA", Destination: "Jamaica", WeightMin: 20, WeightMax: 100, BaseRate: 40, PerKgRate: 2, Currency: "USD", Active: false},
	}
}

func TestComputeRate(t *testing.T) {
	tests := []struct {
		name        string
		origin      string
		destination string
		weight      float64
		wantRate    float64
		wantRuleID  uint
		wantErr     error
	}{
		{
			name:   "first band",
			origin: "USA", destination: "Jamaica", weight: 2,
			wantRate: 18, wantRuleID: 1, // 10 + 2*4
		},
		{
			name:   "lower bound is inclusive",
			origin: "USA", destination: "Jamaica", weight: 5,
			wantRate: 30, wantRuleID: 2, // 15 + 5*3, rule 2 not rule 1
		},
		{
			name:   "upper bound is exclusive, overlap resolved by store order",
			origin: "USA", destination: "Jamaica", weight: 19.5,
			wantRate: 73.5, wantRuleID: 2, // rule 2 wins over overlapping rule 3
		},
		{
			name:   "past rule 2 band falls into rule 3",
			origin: "USA", destination: "Jamaica", weight: 20,
			wantRate: 279, wantRuleID: 3, // 99 + 20*9
		},
		{
			name:   "origin match is case-insensitive",
			origin: "usa", destination: "jamaica", weight: 2,
			wantRate: 18, wantRuleID: 1,
		},
		{
			name:   "different lane uses its own currency",
			origin: "UK", destination: "Jamaica", weight: 10,
			wantRate: 80, wantRuleID: 4,
		},
		{
			name:   "inactive rules are skipped",
			origin: "USA", destination: "Jamaica", weight: 60,
			wantErr: ErrNoMatchingRule, // only the inactive rule 5 covers 60kg
		},
		{
			name:   "no rule for lane",
			origin: "Canada", destination: "Jamaica", weight: 2,
			wantErr: ErrNoMatchingRule,
		},
		{
			name:   "negative weight",
			origin: "USA", destination: "Jamaica", weight: -1,
			wantErr: ErrNoMatchingRule,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeRate(testRules(), tc.origin, tc.destination, tc.weight)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Rate != tc.wantRate {
				t.Errorf("rate: expected %.2f, got %.2f", tc.wantRate, got.Rate)
			}
			if got.RuleID != tc.wantRuleID {
				t.Errorf("rule: expected %d, got %d", tc.wantRuleID, got.RuleID)
			}
		})
	}
}

func TestComputeRateIsPure(t *testing.T) {
	rules := testRules()
	first, err := ComputeRate(rules, "USA", "Jamaica", 7.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := ComputeRate(rules, "USA", "Jamaica", 7.3)
		if err != nil {
			t.Fatalf("unexpected error on run %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("same inputs produced different outputs: %+v vs %+v", first, again)
		}
	}
}
