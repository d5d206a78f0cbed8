package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kpeterson/optflow/internal/apperror"
)

// sqlStateUniqueViolation and friends are the Postgres SQLSTATE codes this layer
// maps into the classified error taxonomy.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
)

// mapError classifies a raw pgx/pgconn error into the apperror taxonomy so
// the job queue and HTTP handlers can dispatch on it uniformly, grounded on
// the pgErr.Code == "23505" mapping pattern used for schedule-name conflicts
// in the job-scheduler reference repo.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.Wrap(apperror.NotFound, "no matching row", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return apperror.Wrap(apperror.Conflict, "unique constraint violation: "+pgErr.ConstraintName, err)
		case sqlStateForeignKeyViolation, sqlStateCheckViolation:
			return apperror.Wrap(apperror.Validation, "constraint violation: "+pgErr.ConstraintName, err)
		}
		// Connection-level classes (08xxx) and resource-exhaustion
		// classes (53xxx) are transient from the caller's perspective.
		if len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53") {
			return apperror.Wrap(apperror.ProviderTransient, "transient database error", err)
		}
	}

	return apperror.Wrap(apperror.Internal, "unclassified database error", err)
}
