package quality

import (
	"context"
	"fmt"
	"time"
)

// ReferenceProvider is a deterministic stand-in Provider: it has no real
// market-data vendor behind it, so every quote it returns has a zero bid and
// ask (and an epoch timestamp), which the gate rejects as FAIL_NO_QUOTE,
// documenting the shape a real vendor integration must fill rather than
// pretending to be one. It exists so
// CachedSource has something to call on a cache miss.
type ReferenceProvider struct{}

// NewReferenceProvider builds a ReferenceProvider.
func NewReferenceProvider() *ReferenceProvider {
	return &ReferenceProvider{}
}

// FetchQuote implements Provider.
func (r *ReferenceProvider) FetchQuote(_ context.Context, symbol string) (Quote, error) {
	if symbol == "" {
		return Quote{}, fmt.Errorf("quality: empty symbol")
	}
	return Quote{
		Symbol: symbol,
		AsOf:   time.Unix(0, 0),
		Bid:    0,
		Ask:    0,
	}, nil
}
