package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"customer-registry/internal/infrastructure/monitoring"
	"customer-registry/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// TxStep is one statement or check inside a unit of work. Returning an error
// aborts the unit and rolls back everything before it.
type TxStep func(ctx context.Context, tx pgx.Tx) error

type TxRunner struct {
	db     DBPool
	logger *slog.Logger
}

func NewTxRunner(db DBPool, logger *slog.Logger) *TxRunner {
	if db == nil {
		panic("DBPool cannot be nil for TxRunner")
	}
	if logger == nil {
		panic("logger cannot be nil for TxRunner")
	}
	return &TxRunner{db: db, logger: logger.With("component", "TxRunner")}
}

func (r *TxRunner) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *TxRunner) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%w: failed to commit transaction: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *TxRunner) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

// RunInTx executes steps in order inside one transaction. The transaction is
// committed only if every step succeeds; on a step error or a panic it is
// rolled back before RunInTx returns.
func (r *TxRunner) RunInTx(ctx context.Context, op string, steps ...TxStep) (err error) {
	log := r.logger.With(slog.String("operation", op))
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		monitoring.RecordDBQuery(op, status, time.Since(start))
	}()

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		// rollback must still reach the server when ctx is already cancelled
		if rbErr := r.RollbackTx(context.WithoutCancel(ctx), tx); rbErr == nil {
			log.DebugContext(ctx, "Transaction rolled back")
		}
	}()

	for i, step := range steps {
		if err := step(ctx, tx); err != nil {
			log.DebugContext(ctx, "Transaction step failed", slog.Int("step", i), slog.Any("error", err))
			return err
		}
	}

	finished = true
	if err := r.CommitTx(ctx, tx); err != nil {
		return err
	}
	log.DebugContext(ctx, "Transaction committed", slog.Int("steps", len(steps)))
	return nil
}
