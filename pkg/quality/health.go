package quality

import (
	"context"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/kpeterson/optflow/internal/telemetry"
)

// CacheStats is the hit/miss/error tally behind GET /system/health's
// cache_stats field.
type CacheStats struct {
	Hits   float64 `json:"hits"`
	Misses float64 `json:"misses"`
	Errors float64 `json:"errors"`
}

// SystemHealth is the full GET /system/health response body.
type SystemHealth struct {
	Status             string            `json:"status"`
	ProviderHealth     map[string]string `json:"provider_health"`
	CacheStats         CacheStats        `json:"cache_stats"`
	VetoRate7d         float64           `json:"veto_rate_7d"`
	ActiveConstraints  []string          `json:"active_constraints"`
	NotExecutablePct   float64           `json:"not_executable_pct"`
	PartialOutcomesPct float64           `json:"partial_outcomes_pct"`
}

// OutcomeCounter supplies the 7-day suggestion-outcome tallies GET
// /system/health reports — satisfied by *pkg/gateway.Gateway.
type OutcomeCounter interface {
	SuggestionOutcomeCounts(ctx context.Context, since time.Time) (total, notExecutable, partial int64, err error)
}

// HealthReport assembles a SystemHealth snapshot from the gate's breakers,
// the quote cache's counters, and a rolling week of suggestion outcomes.
func HealthReport(ctx context.Context, gate *Gate, counts OutcomeCounter, now time.Time) (SystemHealth, error) {
	h := SystemHealth{
		Status:            "ok",
		ProviderHealth:    gate.breakers.States(),
		ActiveConstraints: []string{"stale_after_seconds", "wide_spread_pct"},
	}

	for _, state := range h.ProviderHealth {
		if state == "open" {
			h.Status = "degraded"
		}
	}

	h.CacheStats = readCacheStats()

	total, notExecutable, partial, err := counts.SuggestionOutcomeCounts(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return SystemHealth{}, err
	}
	if total > 0 {
		h.VetoRate7d = float64(notExecutable) / float64(total)
		h.PartialOutcomesPct = float64(partial) / float64(total)
		h.NotExecutablePct = h.VetoRate7d
	}

	return h, nil
}

func readCacheStats() CacheStats {
	var stats CacheStats

	hit, _ := telemetry.QuoteCacheResultsTotal.GetMetricWithLabelValues("hit")
	miss, _ := telemetry.QuoteCacheResultsTotal.GetMetricWithLabelValues("miss")
	errored, _ := telemetry.QuoteCacheResultsTotal.GetMetricWithLabelValues("error")

	var m dto.Metric
	if hit != nil {
		_ = hit.Write(&m)
		stats.Hits = m.GetCounter().GetValue()
	}
	m = dto.Metric{}
	if miss != nil {
		_ = miss.Write(&m)
		stats.Misses = m.GetCounter().GetValue()
	}
	m = dto.Metric{}
	if errored != nil {
		_ = errored.Write(&m)
		stats.Errors = m.GetCounter().GetValue()
	}

	return stats
}
