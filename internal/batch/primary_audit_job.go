package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"customer-registry/internal/domain/customer"
	"customer-registry/internal/infrastructure/monitoring"
)

// ViolationFinder is the slice of the customer repository the audit needs.
type ViolationFinder interface {
	FindPrimaryAddressViolations(ctx context.Context) ([]customer.PrimaryAddressViolation, error)
}

// PrimaryAddressAuditJob reports customers that do not have exactly one
// primary address. It never repairs data.
type PrimaryAddressAuditJob struct {
	finder ViolationFinder
	logger *slog.Logger
}

func NewPrimaryAddressAuditJob(finder ViolationFinder, logger *slog.Logger) *PrimaryAddressAuditJob {
	if finder == nil || logger == nil {
		panic("PrimaryAddressAuditJob dependencies cannot be nil")
	}
	return &PrimaryAddressAuditJob{
		finder: finder,
		logger: logger.With("job", "PrimaryAddressAudit"),
	}
}

func (j *PrimaryAddressAuditJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting primary address audit job.")

	violations, err := j.finder.FindPrimaryAddressViolations(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to query primary address violations, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run primary address audit: %w", err)
	}

	monitoring.SetPrimaryAddressViolations(len(violations))

	for _, v := range violations {
		j.logger.WarnContext(ctx, "Customer violates the single primary address rule",
			slog.String("customerID", v.CustomerID),
			slog.Int("address_count", v.AddressCount),
			slog.Int("primary_count", v.PrimaryCount),
		)
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("violations", len(violations)),
	)
	if len(violations) > 0 {
		summaryLog.WarnContext(ctx, "Primary address audit job finished with violations.")
	} else {
		summaryLog.InfoContext(ctx, "Primary address audit job finished successfully.")
	}
	return nil
}
