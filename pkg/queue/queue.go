// Package queue implements the durable Postgres-backed job queue (C4):
// exactly-once-per-idempotency-key enqueue, FOR UPDATE SKIP LOCKED claiming,
// and exponential backoff with jitter on retry, grounded on the claim
// pattern from the mycelian-memory outbox worker and the ON CONFLICT
// DO NOTHING idempotency pattern from the dist-job-scheduler reference repo.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/internal/telemetry"
)

// Spec describes a unit of work to enqueue.
type Spec struct {
	JobName        string
	Payload        json.RawMessage
	IdempotencyKey *string
	MaxAttempts    int
	RunAfter       time.Time
}

// Queue wraps the job_runs table.
type Queue struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

// New builds a Queue over pool.
func New(pool *pgxpool.Pool, c clock.Clock) *Queue {
	return &Queue{pool: pool, clock: c}
}

// Enqueue inserts a new JobRun, or returns the existing row for the same
// (job_name, idempotency_key) pair when one already exists, whatever its
// status — "created" is false in the latter case.
func (q *Queue) Enqueue(ctx context.Context, spec Spec) (db.JobRun, bool, error) {
	maxAttempts := resolveMaxAttempts(spec.MaxAttempts)
	runAfter := spec.RunAfter
	if runAfter.IsZero() {
		runAfter = q.clock.Now()
	}

	run, created, err := db.New(q.pool).InsertJobRun(ctx, db.JobRun{
		ID:             uuid.New(),
		JobName:        spec.JobName,
		IdempotencyKey: spec.IdempotencyKey,
		MaxAttempts:    maxAttempts,
		ScheduledFor:   runAfter,
		RunAfter:       runAfter,
		Payload:        spec.Payload,
	})

	outcome := "created"
	if !created {
		outcome = "deduplicated"
	}
	telemetry.JobsEnqueuedTotal.WithLabelValues(spec.JobName, outcome).Inc()

	return run, created, err
}

// Claim claims up to batch pending rows whose run_after has elapsed.
func (q *Queue) Claim(ctx context.Context, workerID string, batch int) ([]db.JobRun, error) {
	return db.New(q.pool).ClaimJobRows(ctx, workerID, batch)
}

// Complete marks a claimed job run as completed.
func (q *Queue) Complete(ctx context.Context, run db.JobRun, result json.RawMessage, duration time.Duration) error {
	ok, err := db.New(q.pool).UpdateJobRunCompleted(ctx, run.ID, run.AttemptCount, result, duration.Milliseconds())
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.Conflict, "job run was concurrently modified")
	}
	telemetry.JobsCompletedTotal.WithLabelValues(run.JobName, string(db.JobCompleted)).Inc()
	return nil
}

// resolveMaxAttempts applies Enqueue's default max_attempts when a Spec
// doesn't set one.
func resolveMaxAttempts(specMaxAttempts int) int {
	if specMaxAttempts == 0 {
		return 5
	}
	return specMaxAttempts
}

// shouldDeadLetter reports whether a retryable failure on a run that has
// already used attemptCount attempts (0-indexed, pre-increment) should
// dead-letter rather than reschedule — true once the failure being recorded
// would be the maxAttempts'th attempt.
func shouldDeadLetter(attemptCount, maxAttempts int) bool {
	return attemptCount+1 >= maxAttempts
}

// backoffInterval returns the exponential-backoff-with-jitter delay for the
// (attemptCount+1)'th attempt, replaying a fresh policy from the start each
// call since ExponentialBackOff carries mutable state across NextBackOff
// calls.
func backoffInterval(attemptCount int) time.Duration {
	policy := newBackoffPolicy()
	var interval time.Duration
	for i := 0; i <= attemptCount; i++ {
		interval = policy.NextBackOff()
	}
	return interval
}

// newBackoffPolicy builds a fresh cenkalti/backoff/v5 exponential policy:
// base 2s, cap 5m, multiplier 2, 50% jitter — the spec's "exponential
// backoff with jitter" requirement for C4. A fresh instance is built per
// call since ExponentialBackOff carries mutable internal state across
// NextBackOff calls and must not be shared across concurrent job runs.
func newBackoffPolicy() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMaxInterval(5*time.Minute),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.5),
	)
}

// FailRetryable records a retryable failure and reschedules the run after a
// backoff interval, or dead-letters it once attempt_count reaches
// max_attempts.
func (q *Queue) FailRetryable(ctx context.Context, run db.JobRun, cause error) error {
	queries := db.New(q.pool)

	if shouldDeadLetter(run.AttemptCount, run.MaxAttempts) {
		ok, err := queries.UpdateJobRunDeadLettered(ctx, run.ID, run.AttemptCount, cause.Error())
		if err != nil {
			return err
		}
		if ok {
			telemetry.JobsCompletedTotal.WithLabelValues(run.JobName, string(db.JobDeadLettered)).Inc()
		}
		return nil
	}

	runAfter := q.clock.Now().Add(backoffInterval(run.AttemptCount))

	ok, err := queries.UpdateJobRunFailedRetryable(ctx, run.ID, run.AttemptCount, cause.Error(), runAfter)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.Conflict, "job run was concurrently modified")
	}
	return nil
}

// FailTerminal records a non-retryable failure.
func (q *Queue) FailTerminal(ctx context.Context, run db.JobRun, cause error) error {
	ok, err := db.New(q.pool).UpdateJobRunFailedTerminal(ctx, run.ID, run.AttemptCount, cause.Error())
	if err != nil {
		return err
	}
	if ok {
		telemetry.JobsCompletedTotal.WithLabelValues(run.JobName, string(db.JobFailed)).Inc()
	}
	return nil
}

// ReclaimExpiredLeases resets processing rows whose lease has expired back
// to pending.
func (q *Queue) ReclaimExpiredLeases(ctx context.Context, leaseTimeout time.Duration) (int64, error) {
	n, err := db.New(q.pool).ReclaimExpiredLeases(ctx, leaseTimeout)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		telemetry.LeasesReclaimedTotal.Add(float64(n))
	}
	return n, nil
}
