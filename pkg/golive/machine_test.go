package golive

import (
	"testing"

	"github.com/kpeterson/optflow/internal/config"
)

func TestFailFastPredicateTripsOnDrawdown(t *testing.T) {
	cfg := &config.Config{FailFastDrawdownPct: 0.15, FailFastLossPct: 0.10}
	if !FailFastPredicate(0.20, 0, cfg) {
		t.Fatal("expected fail-fast when drawdown exceeds threshold")
	}
}

func TestFailFastPredicateTripsOnLoss(t *testing.T) {
	cfg := &config.Config{FailFastDrawdownPct: 0.15, FailFastLossPct: 0.10}
	if !FailFastPredicate(0, 0.11, cfg) {
		t.Fatal("expected fail-fast when loss exceeds threshold")
	}
}

func TestFailFastPredicateDoesNotTripUnderThresholds(t *testing.T) {
	cfg := &config.Config{FailFastDrawdownPct: 0.15, FailFastLossPct: 0.10}
	if FailFastPredicate(0.10, 0.05, cfg) {
		t.Fatal("did not expect fail-fast under both thresholds")
	}
}

func TestFailFastPredicateBoundaryIsExclusive(t *testing.T) {
	cfg := &config.Config{FailFastDrawdownPct: 0.15, FailFastLossPct: 0.10}
	if FailFastPredicate(0.15, 0.10, cfg) {
		t.Fatal("exactly at threshold should not trip (strictly greater-than)")
	}
}
