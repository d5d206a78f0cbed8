// Package strategy defines the boundary between the suggestion generator
// and the options-pricing/candidate-search math, which is an external
// collaborator per the system's scope: numerical portfolio optimization is
// out of this repo's bounds.
package strategy

import (
	"context"

	"github.com/kpeterson/optflow/internal/db"
)

// Params is the active parameter snapshot a CandidateSource receives,
// produced by pkg/autotune and consumed unchanged.
type Params struct {
	SnapshotID string
	Values     map[string]float64
}

// Candidate is a single proposed multi-leg trade before quality gating and
// sizing are applied.
type Candidate struct {
	Strategy      string
	Symbol        string
	DisplaySymbol string
	Legs          []db.Leg
	LimitPrice    float64
	Metrics       db.Metrics
	IVRank        *float64
	IVRegime      *string
	Score         float64
}

// CandidateSource searches for tradeable candidates given a user's holdings
// and the active strategy parameters. The real options-pricing/candidate
// search implementation lives outside this repo; this interface is the seam
// the generator depends on.
type CandidateSource interface {
	FindCandidates(ctx context.Context, holdings []db.Holding, params Params) ([]Candidate, error)
}
