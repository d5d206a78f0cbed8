package inbox

import (
	"context"

	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/telemetry"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/suggestion"
)

// StageResult is one id's outcome from a batch stage attempt.
type StageResult struct {
	ID     uuid.UUID
	Reason string
}

// Stager transitions suggestions from EXECUTABLE to STAGED.
type Stager struct {
	gateway *gateway.Gateway
}

// NewStager builds a Stager.
func NewStager(gw *gateway.Gateway) *Stager {
	return &Stager{gateway: gw}
}

// StageBatch attempts the EXECUTABLE->STAGED transition for each id
// independently: a failed transition for one id is captured as {id, reason}
// without rolling back the ids that succeeded in the same batch.
func (s *Stager) StageBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (staged []uuid.UUID, failed []StageResult) {
	for _, id := range ids {
		if err := s.stageOne(ctx, userID, id); err != nil {
			failed = append(failed, StageResult{ID: id, Reason: reasonFor(err)})
			continue
		}
		staged = append(staged, id)
	}
	return staged, failed
}

func (s *Stager) stageOne(ctx context.Context, userID, id uuid.UUID) error {
	current, err := s.gateway.GetSuggestion(ctx, userID, id)
	if err != nil {
		return err
	}

	next, ok := suggestion.Transition(current.Status, suggestion.EventStage)
	if !ok {
		return apperror.New(apperror.Validation, "suggestion is not in a stageable state")
	}

	if _, err := s.gateway.UpdateSuggestionStatus(ctx, userID, id, next); err != nil {
		return err
	}
	telemetry.SuggestionsStagedTotal.Inc()
	return nil
}

func reasonFor(err error) string {
	if ae, ok := apperror.As(err); ok {
		return string(ae.Code) + ": " + ae.Message
	}
	return "internal"
}
