package quality

import (
	"testing"
	"time"
)

func TestBreakerTripsAtFailureThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure("polygon")
	}
	if !b.Allow("polygon") {
		t.Fatal("breaker should still be closed before reaching the threshold")
	}

	b.RecordFailure("polygon")
	if b.Allow("polygon") {
		t.Fatal("breaker should be open after reaching the threshold")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(2, time.Minute)

	b.RecordFailure("polygon")
	b.RecordSuccess("polygon")
	b.RecordFailure("polygon")
	if !b.Allow("polygon") {
		t.Fatal("a success between failures should reset the consecutive count")
	}
}

func TestBreakersAreIndependentPerProvider(t *testing.T) {
	b := NewBreaker(1, time.Minute)

	b.RecordFailure("polygon")
	if !b.Allow("ibkr") {
		t.Fatal("a failure on one provider must not trip another provider's breaker")
	}
}
