package db

import (
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/kpeterson/optflow/internal/apperror"
)

// row is the subset of pgx.Row/pgx.Rows both satisfy, letting the suggestion
// and job-run scanners share one implementation regardless of call shape.
type row interface {
	Scan(dest ...any) error
}

func scanSuggestion(r row) (Suggestion, error) {
	var (
		s        Suggestion
		legsRaw  json.RawMessage
		metRaw   json.RawMessage
		sizeRaw  json.RawMessage
	)
	err := r.Scan(&s.ID, &s.UserID, &s.Window, &s.Strategy, &s.Symbol, &s.DisplaySymbol,
		&legsRaw, &s.LimitPrice, &metRaw, &s.IVRank, &s.IVRegime, &s.Score, &s.Status,
		&s.BlockedReason, &s.BlockedDetail, &s.MarketdataQuality, &sizeRaw, &s.TraceID,
		&s.CreatedAt, &s.RefreshedAt)
	if err != nil {
		return Suggestion{}, mapError(err)
	}
	if err := unmarshalInto(legsRaw, &s.Legs); err != nil {
		return Suggestion{}, err
	}
	if err := unmarshalInto(metRaw, &s.Metrics); err != nil {
		return Suggestion{}, err
	}
	if err := unmarshalInto(sizeRaw, &s.Sizing); err != nil {
		return Suggestion{}, err
	}
	return s, nil
}

func scanSuggestionRow(r pgx.Rows) (Suggestion, error) {
	return scanSuggestion(r)
}

func scanJobRun(r row) (JobRun, error) {
	var j JobRun
	err := r.Scan(&j.ID, &j.JobName, &j.IdempotencyKey, &j.Status, &j.AttemptCount, &j.MaxAttempts,
		&j.ScheduledFor, &j.RunAfter, &j.StartedAt, &j.FinishedAt, &j.DurationMs, &j.Payload,
		&j.Result, &j.Error, &j.WorkerID, &j.CreatedAt)
	if err != nil {
		return JobRun{}, mapError(err)
	}
	return j, nil
}

func scanJobRunRow(r pgx.Rows) (JobRun, error) {
	return scanJobRun(r)
}

func scanValidationState(r row) (ValidationState, error) {
	var (
		v       ValidationState
		histRaw json.RawMessage
	)
	err := r.Scan(&v.UserID, &v.PaperWindowStart, &v.PaperWindowEnd, &v.PaperConsecutivePasses,
		&v.PaperCheckpointTarget, &v.PaperFailFastTriggered, &v.PaperFailFastReason,
		&v.HistoricalLastRunAt, &histRaw, &v.OverallReady, &v.State, &v.UpdatedAt)
	if err != nil {
		return ValidationState{}, mapError(err)
	}
	if len(histRaw) > 0 {
		var hr HistoricalLastResult
		if err := json.Unmarshal(histRaw, &hr); err != nil {
			return ValidationState{}, apperror.Wrap(apperror.Internal, "decoding historical_last_result", err)
		}
		v.HistoricalLastResult = &hr
	}
	return v, nil
}

func unmarshalInto(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.Wrap(apperror.Internal, "decoding stored json column", err)
	}
	return nil
}

func legsJSON(legs []Leg) json.RawMessage {
	b, _ := json.Marshal(legs)
	return b
}

func metricsJSON(m Metrics) json.RawMessage {
	b, _ := json.Marshal(m)
	return b
}

func sizingJSON(s SizingMetadata) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func historicalResultJSON(h *HistoricalLastResult) json.RawMessage {
	if h == nil {
		return nil
	}
	b, _ := json.Marshal(h)
	return b
}

// asNotFound reports whether err classifies as apperror.NotFound, the shape
// produced when an INSERT ... ON CONFLICT DO NOTHING affects zero rows and
// its RETURNING clause yields pgx.ErrNoRows.
func asNotFound(err error) (*apperror.Error, bool) {
	ae, ok := apperror.As(err)
	if !ok || ae.Code != apperror.NotFound {
		return nil, false
	}
	return ae, true
}
