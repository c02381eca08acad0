package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"customer-registry/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	onePrimaryIndex = "addresses_one_primary_idx"
)

// translateDBError maps constraint violations onto the error taxonomy and
// wraps everything else as ErrDatabase. Store detail stays in the log.
func translateDBError(err error, logger *slog.Logger) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	logger.Debug("Translating PostgreSQL error", slog.String("code", pgErr.Code), slog.String("constraint", pgErr.ConstraintName))
	switch pgErr.Code {
	case pgUniqueViolation:
		if pgErr.ConstraintName == onePrimaryIndex {
			return fmt.Errorf("%w: customer already has a primary address", apperrors.ErrConflict)
		}
		return fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, err)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: referenced customer does not exist or still has dependents", apperrors.ErrConflict)
	case pgCheckViolation:
		return fmt.Errorf("%w: value rejected by constraint %s", apperrors.ErrInvalidArgument, pgErr.ConstraintName)
	default:
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
}
