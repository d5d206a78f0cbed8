package quality

import "context"

// Provider fetches a fresh quote from a real market-data vendor. The actual
// vendor integration is out of this repo's scope (see strategy.Reference for
// the equivalent stand-in on the pricing side); CachedSource only needs
// something that can satisfy a cache miss.
type Provider interface {
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}

// CachedSource is the Redis-hot-path/provider-fallback/warm-on-miss quote
// source the suggestion generator drives through the gate: a cache hit skips
// the provider and the breaker entirely, a miss checks the breaker before
// calling out, and a successful fetch rewarms the cache for the next reader.
type CachedSource struct {
	cache        *Cache
	provider     Provider
	providerName string
	breaker      *Breaker
}

// NewCachedSource builds a CachedSource.
func NewCachedSource(cache *Cache, provider Provider, providerName string, breaker *Breaker) *CachedSource {
	return &CachedSource{cache: cache, provider: provider, providerName: providerName, breaker: breaker}
}

// LatestQuote satisfies suggestion.QuoteSource.
func (s *CachedSource) LatestQuote(ctx context.Context, symbol string) (Quote, string, error) {
	if q, ok := s.cache.Get(ctx, symbol); ok {
		return q, s.providerName, nil
	}

	if !s.breaker.Allow(s.providerName) {
		return Quote{}, s.providerName, errProviderOpen
	}

	q, err := s.provider.FetchQuote(ctx, symbol)
	if err != nil {
		s.breaker.RecordFailure(s.providerName)
		return Quote{}, s.providerName, err
	}
	s.breaker.RecordSuccess(s.providerName)

	if err := s.cache.Set(ctx, q); err != nil {
		// A failed warm doesn't invalidate the quote we already have; the
		// next reader just pays the provider round trip again.
		_ = err
	}
	return q, s.providerName, nil
}

var errProviderOpen = providerOpenError{}

type providerOpenError struct{}

func (providerOpenError) Error() string { return "quality: provider circuit breaker is open" }
