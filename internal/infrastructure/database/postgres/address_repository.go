package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"customer-registry/internal/domain/customer"
	"customer-registry/internal/infrastructure/monitoring"
	"customer-registry/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const (
	addressColumns = `address_id, customer_id, address, is_primary, created_at, updated_at`

	insertAddressSQL = `
        INSERT INTO addresses (address_id, customer_id, address, is_primary, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING created_at, updated_at`

	updateAddressSQL = `
        UPDATE addresses
        SET address = $1,
            updated_at = NOW()
        WHERE address_id = $2 AND customer_id = $3`

	lockAddressSQL = `
        SELECT is_primary
        FROM addresses
        WHERE address_id = $1 AND customer_id = $2
        FOR UPDATE`

	clearPrimarySQL = `
        UPDATE addresses
        SET is_primary = FALSE,
            updated_at = NOW()
        WHERE customer_id = $1 AND is_primary`

	markPrimarySQL = `
        UPDATE addresses
        SET is_primary = TRUE,
            updated_at = NOW()
        WHERE address_id = $1 AND customer_id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE address_id = $1 AND customer_id = $2`

	selectAddressesSQL = `
        SELECT ` + addressColumns + `
        FROM addresses
        WHERE customer_id = $1
        ORDER BY is_primary DESC, created_at ASC, address_id ASC`

	selectAddressSQL = `
        SELECT ` + addressColumns + `
        FROM addresses
        WHERE address_id = $1 AND customer_id = $2`

	selectPrimaryViolationsSQL = `
        SELECT c.id,
               COUNT(a.address_id) AS address_count,
               COUNT(a.address_id) FILTER (WHERE a.is_primary) AS primary_count
        FROM customers c
        LEFT JOIN addresses a ON a.customer_id = c.id
        GROUP BY c.id
        HAVING COUNT(a.address_id) FILTER (WHERE a.is_primary) <> 1
        ORDER BY c.id`
)

// AddAddress stores a new non-primary address for an existing customer.
func (r *CustomerRepository) AddAddress(ctx context.Context, customerID, addressText string) (*customer.Address, error) {
	addr := &customer.Address{
		AddressID:  r.newID(),
		CustomerID: customerID,
		Text:       addressText,
		IsPrimary:  false,
	}
	log := r.logger.With(slog.String("customerID", customerID), slog.String("addressID", addr.AddressID))
	log.InfoContext(ctx, "Attempting to add address")

	err := r.tx.RunInTx(ctx, "AddAddress",
		r.lockCustomer(customerID),
		r.insertAddress(addr),
	)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, customer.ErrDuplicateID
		}
		return nil, err
	}

	log.InfoContext(ctx, "Address added successfully")
	return addr, nil
}

func (r *CustomerRepository) UpdateAddress(ctx context.Context, customerID, addressID, addressText string) error {
	log := r.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))
	log.InfoContext(ctx, "Attempting to update address")

	err := r.tx.RunInTx(ctx, "UpdateAddress", func(ctx context.Context, tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, updateAddressSQL, addressText, addressID, customerID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to update address", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		if cmdTag.RowsAffected() == 0 {
			log.WarnContext(ctx, "Update affected zero rows, address likely not found")
			return customer.ErrAddressNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Address updated successfully")
	return nil
}

// SetPrimaryAddress moves the primary flag to addressID. The clear and the
// mark run in one transaction under the customer lock, so no reader ever sees
// zero or two primaries.
func (r *CustomerRepository) SetPrimaryAddress(ctx context.Context, customerID, addressID string) error {
	log := r.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))
	log.InfoContext(ctx, "Attempting to set primary address")

	var isPrimary bool
	err := r.tx.RunInTx(ctx, "SetPrimaryAddress",
		r.lockCustomer(customerID),
		r.lockAddress(customerID, addressID, &isPrimary),
		func(ctx context.Context, tx pgx.Tx) error {
			if isPrimary {
				return nil
			}
			if _, err := tx.Exec(ctx, clearPrimarySQL, customerID); err != nil {
				log.ErrorContext(ctx, "Failed to clear primary flag", slog.Any("error", err))
				return translateDBError(err, r.logger)
			}
			if _, err := tx.Exec(ctx, markPrimarySQL, addressID, customerID); err != nil {
				log.ErrorContext(ctx, "Failed to mark primary flag", slog.Any("error", err))
				return translateDBError(err, r.logger)
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Primary address set successfully", slog.Bool("alreadyPrimary", isPrimary))
	return nil
}

// DeleteAddress refuses to remove the primary address.
func (r *CustomerRepository) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	log := r.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))
	log.InfoContext(ctx, "Attempting to delete address")

	var isPrimary bool
	err := r.tx.RunInTx(ctx, "DeleteAddress",
		r.lockCustomer(customerID),
		r.lockAddress(customerID, addressID, &isPrimary),
		func(ctx context.Context, tx pgx.Tx) error {
			if isPrimary {
				log.WarnContext(ctx, "Refusing to delete primary address")
				return customer.ErrPrimaryAddressDelete
			}
			if _, err := tx.Exec(ctx, deleteAddressSQL, addressID, customerID); err != nil {
				log.ErrorContext(ctx, "Failed to delete address", slog.Any("error", err))
				return translateDBError(err, r.logger)
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Address deleted successfully")
	return nil
}

func (r *CustomerRepository) FindAddresses(ctx context.Context, customerID string) ([]*customer.Address, error) {
	startTime := time.Now()
	status := "success"
	defer func() {
		monitoring.RecordDBQuery("FindAddresses", status, time.Since(startTime))
	}()

	rows, err := r.db.Query(ctx, selectAddressesSQL, customerID)
	if err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Failed to query addresses", slog.String("customerID", customerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query addresses: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	addresses := make([]*customer.Address, 0)
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			status = "error"
			r.logger.ErrorContext(ctx, "Failed to scan address row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan address row: %w", apperrors.ErrDatabase, err)
		}
		addresses = append(addresses, addr)
	}
	if err = rows.Err(); err != nil {
		status = "error"
		return nil, fmt.Errorf("%w: error iterating address rows: %w", apperrors.ErrDatabase, err)
	}
	return addresses, nil
}

func (r *CustomerRepository) FindAddress(ctx context.Context, customerID, addressID string) (*customer.Address, error) {
	startTime := time.Now()
	status := "success"

	addr, err := scanAddress(r.db.QueryRow(ctx, selectAddressSQL, addressID, customerID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery("FindAddress", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrAddressNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan address", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get address: %w", apperrors.ErrDatabase, err)
	}
	return addr, nil
}

// FindPrimaryAddressViolations lists customers that do not have exactly one
// primary address. A healthy store returns nothing.
func (r *CustomerRepository) FindPrimaryAddressViolations(ctx context.Context) ([]customer.PrimaryAddressViolation, error) {
	startTime := time.Now()
	status := "success"
	defer func() {
		monitoring.RecordDBQuery("FindPrimaryAddressViolations", status, time.Since(startTime))
	}()

	rows, err := r.db.Query(ctx, selectPrimaryViolationsSQL)
	if err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Failed to query primary address violations", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query primary address violations: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	violations := make([]customer.PrimaryAddressViolation, 0)
	for rows.Next() {
		var v customer.PrimaryAddressViolation
		if err := rows.Scan(&v.CustomerID, &v.AddressCount, &v.PrimaryCount); err != nil {
			status = "error"
			return nil, fmt.Errorf("%w: failed to scan violation row: %w", apperrors.ErrDatabase, err)
		}
		violations = append(violations, v)
	}
	if err = rows.Err(); err != nil {
		status = "error"
		return nil, fmt.Errorf("%w: error iterating violation rows: %w", apperrors.ErrDatabase, err)
	}
	return violations, nil
}

func scanAddress(row pgx.Row) (*customer.Address, error) {
	var addr customer.Address
	err := row.Scan(
		&addr.AddressID,
		&addr.CustomerID,
		&addr.Text,
		&addr.IsPrimary,
		&addr.CreatedAt,
		&addr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *CustomerRepository) insertAddress(addr *customer.Address) TxStep {
	return func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertAddressSQL,
			addr.AddressID,
			addr.CustomerID,
			addr.Text,
			addr.IsPrimary,
		).Scan(&addr.CreatedAt, &addr.UpdatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to insert address", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		return nil
	}
}

func (r *CustomerRepository) lockAddress(customerID, addressID string, isPrimary *bool) TxStep {
	return func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, lockAddressSQL, addressID, customerID).Scan(isPrimary)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.WarnContext(ctx, "Address not found while locking", slog.String("customerID", customerID), slog.String("addressID", addressID))
				return customer.ErrAddressNotFound
			}
			r.logger.ErrorContext(ctx, "Failed to lock address row", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		return nil
	}
}
