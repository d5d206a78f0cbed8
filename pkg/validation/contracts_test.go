package validation

import "testing"

func TestRollContractsFindsClosestWithinTolerance(t *testing.T) {
	chain := []Contract{
		{DTE: 30, Moneyness: 0.95},
		{DTE: 30, Moneyness: 1.0},
		{DTE: 30, Moneyness: 1.1},
		{DTE: 45, Moneyness: 1.0},
	}

	c, gap := RollContracts(chain, 30, 1.0, 0.05)
	if gap {
		t.Fatal("expected a match within tolerance")
	}
	if c.Moneyness != 1.0 {
		t.Fatalf("Moneyness = %v, want 1.0", c.Moneyness)
	}
}

func TestRollContractsGapWhenNoneWithinTolerance(t *testing.T) {
	chain := []Contract{{DTE: 30, Moneyness: 2.0}}

	_, gap := RollContracts(chain, 30, 1.0, 0.05)
	if !gap {
		t.Fatal("expected gap=true when no contract is within tolerance")
	}
}

func TestRollContractsIgnoresWrongDTE(t *testing.T) {
	chain := []Contract{{DTE: 60, Moneyness: 1.0}}

	_, gap := RollContracts(chain, 30, 1.0, 0.05)
	if !gap {
		t.Fatal("expected gap=true when no contract matches the target DTE")
	}
}
