package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/internal/telemetry"
)

// Handler processes one claimed JobRun and returns a result payload or an
// error. The error's apperror classification determines whether the queue
// retries, dead-letters, or terminally fails the run.
type Handler func(ctx context.Context, run db.JobRun) ([]byte, error)

// Worker pool claims and dispatches job runs, coordinated with
// golang.org/x/sync/errgroup the way the teacher's escalation engine
// coordinates its ticker loop.
type Worker struct {
	queue      *Queue
	logger     *slog.Logger
	workerID   string
	count      int
	batch      int
	pollEvery  time.Duration
	deadlines  map[string]time.Duration
	defaultTTL time.Duration
	handlers   map[string]Handler
}

// NewWorker builds a Worker pool. deadlines maps job_name to its per-job
// execution timeout (e.g. generator vs. historical validation deadlines);
// jobs not listed use defaultTTL.
func NewWorker(q *Queue, logger *slog.Logger, count, batch int, pollEvery time.Duration, deadlines map[string]time.Duration, defaultTTL time.Duration) *Worker {
	return &Worker{
		queue:      q,
		logger:     logger,
		workerID:   uuid.New().String(),
		count:      count,
		batch:      batch,
		pollEvery:  pollEvery,
		deadlines:  deadlines,
		defaultTTL: defaultTTL,
		handlers:   make(map[string]Handler),
	}
}

// Register binds a Handler to a job name.
func (w *Worker) Register(jobName string, h Handler) {
	w.handlers[jobName] = h
}

// Run starts count worker goroutines and blocks until ctx is cancelled,
// draining in-flight claims before returning.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.count; i++ {
		g.Go(func() error {
			w.loop(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	runs, err := w.queue.Claim(ctx, w.workerID, w.batch)
	if err != nil {
		w.logger.Error("claiming job runs", "error", err)
		return
	}

	for _, run := range runs {
		w.dispatch(ctx, run)
	}
}

func (w *Worker) dispatch(ctx context.Context, run db.JobRun) {
	handler, ok := w.handlers[run.JobName]
	if !ok {
		w.logger.Error("no handler registered for job", "job_name", run.JobName)
		_ = w.queue.FailTerminal(ctx, run, apperror.New(apperror.Internal, "no handler registered"))
		return
	}

	ttl := w.defaultTTL
	if d, ok := w.deadlines[run.JobName]; ok {
		ttl = d
	}
	jobCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	start := time.Now()
	result, err := handler(jobCtx, run)
	duration := time.Since(start)
	telemetry.JobDuration.WithLabelValues(run.JobName).Observe(duration.Seconds())

	if err == nil {
		if cerr := w.queue.Complete(ctx, run, result, duration); cerr != nil {
			w.logger.Error("completing job run", "job_name", run.JobName, "error", cerr)
		}
		return
	}

	w.logger.Warn("job handler failed", "job_name", run.JobName, "error", err)
	if apperror.Retryable(err) {
		if rerr := w.queue.FailRetryable(ctx, run, err); rerr != nil {
			w.logger.Error("marking job retryable failure", "job_name", run.JobName, "error", rerr)
		}
		return
	}
	if terr := w.queue.FailTerminal(ctx, run, err); terr != nil {
		w.logger.Error("marking job terminal failure", "job_name", run.JobName, "error", terr)
	}
}
