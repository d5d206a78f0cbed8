// Package db is a hand-written, sqlc-shaped query layer: a Queries struct
// over a DBTX interface satisfied by both *pgxpool.Pool and pgx.Tx, the same
// db.New(dbtx) convention used throughout this codebase's lineage. Every
// per-user method takes an explicit user_id and embeds it in the SQL's WHERE
// clause — the mechanism behind the persistence gateway's user-scoping
// contract.
package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AssetType enumerates a Holding's kind.
type AssetType string

const (
	AssetEquity AssetType = "equity"
	AssetOption AssetType = "option"
	AssetCash   AssetType = "cash"
)

// Holding is a per-user position record, the source of truth for sizing.
type Holding struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Symbol        string
	AssetType     AssetType
	Quantity      float64
	CostBasis     float64
	CurrentPrice  float64
	Greeks        json.RawMessage
	Sector        *string
	UpdatedAt     time.Time
}

// Credential is an encrypted third-party token.
type Credential struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ProviderID string
	Ciphertext []byte
	CreatedAt  time.Time
}

// LegAction is buy or sell.
type LegAction string

const (
	LegBuy  LegAction = "buy"
	LegSell LegAction = "sell"
)

// LegType is the instrument kind of a single suggestion leg.
type LegType string

const (
	LegCall   LegType = "call"
	LegPut    LegType = "put"
	LegEquity LegType = "equity"
)

// Leg is a single ordered component of a suggested trade.
type Leg struct {
	Action       LegAction `json:"action"`
	Type         LegType   `json:"type"`
	Quantity     float64   `json:"quantity"`
	Strike       *float64  `json:"strike,omitempty"`
	Expiry       *string   `json:"expiry,omitempty"` // YYYY-MM-DD
	OptionSymbol *string   `json:"option_symbol,omitempty"`
}

// Metrics holds the EV/risk summary for a suggestion.
type Metrics struct {
	EV        float64 `json:"ev"`
	WinRate   float64 `json:"win_rate"`
	Kelly     float64 `json:"kelly"`
	MaxLoss   float64 `json:"max_loss"`
	MaxProfit float64 `json:"max_profit"`
}

// SizingMetadata records how a suggestion's size was computed and clamped.
type SizingMetadata struct {
	CapitalRequired float64 `json:"capital_required"`
	MaxLossTotal    float64 `json:"max_loss_total"`
	RiskMultiplier  float64 `json:"risk_multiplier"`
	ClampReason     *string `json:"clamp_reason,omitempty"`
}

// SuggestionWindow is a named cadence slot.
type SuggestionWindow string

const (
	WindowMorningLimit SuggestionWindow = "morning_limit"
	WindowMiddayEntry  SuggestionWindow = "midday_entry"
	WindowRebalance    SuggestionWindow = "rebalance"
	WindowScout        SuggestionWindow = "scout"
)

// SuggestionStatus is the suggestion lifecycle state.
type SuggestionStatus string

const (
	StatusExecutable    SuggestionStatus = "EXECUTABLE"
	StatusNotExecutable SuggestionStatus = "NOT_EXECUTABLE"
	StatusStaged        SuggestionStatus = "STAGED"
	StatusCompleted     SuggestionStatus = "COMPLETED"
	StatusDismissed     SuggestionStatus = "DISMISSED"
)

// Suggestion is a proposed trade for a user in a window.
type Suggestion struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Window            SuggestionWindow
	Strategy          string
	Symbol            string
	DisplaySymbol     string
	Legs              []Leg
	LimitPrice        float64
	Metrics           Metrics
	IVRank            *float64
	IVRegime          *string
	Score             float64
	Status            SuggestionStatus
	BlockedReason     *string
	BlockedDetail     *string
	MarketdataQuality json.RawMessage
	Sizing            SizingMetadata
	TraceID           string
	CreatedAt         time.Time
	RefreshedAt       *time.Time
}

// JobStatus is a JobRun's lifecycle state.
type JobStatus string

const (
	JobPending         JobStatus = "pending"
	JobProcessing      JobStatus = "processing"
	JobCompleted       JobStatus = "completed"
	JobFailed          JobStatus = "failed"
	JobFailedRetryable JobStatus = "failed_retryable"
	JobDeadLettered    JobStatus = "dead_lettered"
)

// Terminal reports whether s is a status from which a JobRun never
// transitions again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobDeadLettered:
		return true
	default:
		return false
	}
}

// JobRun is a single durable unit of queued work.
type JobRun struct {
	ID             uuid.UUID
	JobName        string
	IdempotencyKey *string
	Status         JobStatus
	AttemptCount   int
	MaxAttempts    int
	ScheduledFor   time.Time
	RunAfter       time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	DurationMs     *int64
	Payload        json.RawMessage
	Result         json.RawMessage
	Error          *string
	WorkerID       *string
	CreatedAt      time.Time
}

// HistoricalLastResult summarizes the most recent historical run outcome.
type HistoricalLastResult struct {
	Passed    bool    `json:"passed"`
	ReturnPct float64 `json:"return_pct"`
}

// ValidationState is the per-user go-live readiness record.
type ValidationState struct {
	UserID                  uuid.UUID
	PaperWindowStart        time.Time
	PaperWindowEnd          time.Time
	PaperConsecutivePasses  int
	PaperCheckpointTarget   int
	PaperFailFastTriggered  bool
	PaperFailFastReason     *string
	HistoricalLastRunAt     *time.Time
	HistoricalLastResult    *HistoricalLastResult
	OverallReady            bool
	State                   string // INIT | PAPER_WARMUP | PAPER_STREAK | READY_FOR_LIVE | FAIL_FAST_RESET
	UpdatedAt               time.Time
}

// ValidationJournalEntry is an append-only audit trail entry.
type ValidationJournalEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	Title     string
	Summary   string
	Details   json.RawMessage
}

// HistoricalRun records a single backtest execution.
type HistoricalRun struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Symbol         string
	WindowDays     int
	InstrumentType string
	Parameters     json.RawMessage
	ReturnPct      float64
	MaxDrawdown    float64
	WinRate        float64
	TradesCount    int
	Passed         bool
	CreatedAt      time.Time
}

// StrategyConfig is a user's active set of strategy parameters, produced by
// C10's training loop and consumed by C7 as the generator's sizing and
// candidate-selection inputs for its next run.
type StrategyConfig struct {
	UserID     uuid.UUID
	Parameters json.RawMessage
	Streak     int
	SnapshotID string
	UpdatedAt  time.Time
}

// AnalyticsEvent is an append-only telemetry event.
type AnalyticsEvent struct {
	ID         uuid.UUID
	EventName  string
	Category   string
	Properties json.RawMessage
	CreatedAt  time.Time
}
