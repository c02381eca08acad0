package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"customer-registry/internal/domain/customer"
	"customer-registry/internal/infrastructure/monitoring"
	"customer-registry/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	customerColumns = `id, first_name, last_name, phone_number, email, created_at, updated_at`

	insertCustomerSQL = `
        INSERT INTO customers (id, first_name, last_name, phone_number, email, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING created_at, updated_at`

	updateCustomerSQL = `
        UPDATE customers
        SET first_name = $1,
            last_name = $2,
            phone_number = $3,
            email = $4,
            updated_at = NOW()
        WHERE id = $5`

	deleteCustomerSQL = `DELETE FROM customers WHERE id = $1`

	lockCustomerSQL = `SELECT id FROM customers WHERE id = $1 FOR UPDATE`

	selectCustomerByIDSQL = `
        SELECT ` + customerColumns + `
        FROM customers
        WHERE id = $1`

	selectCustomersSQL = `
        SELECT ` + customerColumns + `
        FROM customers`

	customerOrderSQL = ` ORDER BY created_at ASC, id ASC`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type CustomerRepository struct {
	db     DBPool
	tx     *TxRunner
	newID  func() string
	logger *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		tx:     NewTxRunner(db, logger),
		newID:  uuid.NewString,
		logger: logger.With("component", "CustomerRepository"),
	}
}

// WithIDGenerator replaces the identifier source. Tests use it to get
// deterministic ids.
func (r *CustomerRepository) WithIDGenerator(gen func() string) *CustomerRepository {
	if gen != nil {
		r.newID = gen
	}
	return r
}

func (r *CustomerRepository) Create(ctx context.Context, cust *customer.Customer, addressText string) (*customer.Address, error) {
	if cust == nil {
		return nil, fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	cust.ID = r.newID()
	primary := &customer.Address{
		AddressID:  r.newID(),
		CustomerID: cust.ID,
		Text:       addressText,
		IsPrimary:  true,
	}
	log := r.logger.With(slog.String("customerID", cust.ID))
	log.InfoContext(ctx, "Attempting to insert new customer with primary address")

	err := r.tx.RunInTx(ctx, "CreateCustomer",
		r.insertCustomer(cust),
		r.insertAddress(primary),
	)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			log.WarnContext(ctx, "Failed to insert customer due to identifier collision")
			return nil, customer.ErrDuplicateID
		}
		log.ErrorContext(ctx, "Failed to create customer", slog.Any("error", err))
		return nil, err
	}

	log.InfoContext(ctx, "Customer inserted successfully", slog.String("addressID", primary.AddressID))
	return primary, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customerID string, fields customer.Fields) error {
	log := r.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to update customer")

	err := r.tx.RunInTx(ctx, "UpdateCustomer", func(ctx context.Context, tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, updateCustomerSQL,
			fields.FirstName,
			fields.LastName,
			fields.PhoneNumber,
			fields.Email,
			customerID,
		)
		if err != nil {
			log.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		if cmdTag.RowsAffected() == 0 {
			log.WarnContext(ctx, "Update affected zero rows, customer likely not found")
			return customer.ErrCustomerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Customer updated successfully")
	return nil
}

// Delete removes the customer; the addresses go with it through the
// ON DELETE CASCADE foreign key.
func (r *CustomerRepository) Delete(ctx context.Context, customerID string) error {
	log := r.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to delete customer")

	err := r.tx.RunInTx(ctx, "DeleteCustomer", func(ctx context.Context, tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, deleteCustomerSQL, customerID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to execute delete customer", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		if cmdTag.RowsAffected() == 0 {
			log.WarnContext(ctx, "Delete affected zero rows, customer likely not found")
			return customer.ErrCustomerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Customer deleted successfully")
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (*customer.Customer, error) {
	startTime := time.Now()
	status := "success"

	cust, err := scanCustomer(r.db.QueryRow(ctx, selectCustomerByIDSQL, customerID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery("FindCustomerByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found", slog.String("customerID", customerID))
			return nil, customer.ErrCustomerNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan customer by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get customer by ID: %w", apperrors.ErrDatabase, err)
	}
	return cust, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	return r.queryCustomers(ctx, "FindAllCustomers", selectCustomersSQL+customerOrderSQL)
}

// Search combines every supplied criterion with AND. Name is a
// case-insensitive substring of first or last name, phone a substring and
// email an exact match.
func (r *CustomerRepository) Search(ctx context.Context, criteria customer.SearchCriteria) ([]*customer.Customer, error) {
	query, args := buildSearchQuery(criteria.Normalize())
	return r.queryCustomers(ctx, "SearchCustomers", query, args...)
}

func buildSearchQuery(c customer.SearchCriteria) (string, []any) {
	var conds []string
	args := []any{}

	if c.Name != "" {
		args = append(args, "%"+likeEscaper.Replace(c.Name)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", n, n))
	}
	if c.Email != "" {
		args = append(args, c.Email)
		conds = append(conds, fmt.Sprintf("email = $%d", len(args)))
	}
	if c.PhoneNumber != "" {
		args = append(args, "%"+likeEscaper.Replace(c.PhoneNumber)+"%")
		conds = append(conds, fmt.Sprintf("phone_number LIKE $%d", len(args)))
	}

	query := selectCustomersSQL
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + customerOrderSQL, args
}

func (r *CustomerRepository) queryCustomers(ctx context.Context, name, query string, args ...any) ([]*customer.Customer, error) {
	startTime := time.Now()
	status := "success"
	defer func() {
		monitoring.RecordDBQuery(name, status, time.Since(startTime))
	}()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.String("query", name), slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		cust, err := scanCustomer(rows)
		if err != nil {
			status = "error"
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer row: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, cust)
	}

	if err = rows.Err(); err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating customer rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.DebugContext(ctx, "Finished finding customers", slog.String("query", name), slog.Int("count", len(customers)))
	return customers, nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var cust customer.Customer
	err := row.Scan(
		&cust.ID,
		&cust.FirstName,
		&cust.LastName,
		&cust.PhoneNumber,
		&cust.Email,
		&cust.CreatedAt,
		&cust.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func (r *CustomerRepository) insertCustomer(cust *customer.Customer) TxStep {
	return func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertCustomerSQL,
			cust.ID,
			cust.FirstName,
			cust.LastName,
			cust.PhoneNumber,
			cust.Email,
		).Scan(&cust.CreatedAt, &cust.UpdatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		return nil
	}
}

// lockCustomer takes the row lock that serializes every write touching one
// customer's addresses. A missing customer fails here, before any write.
func (r *CustomerRepository) lockCustomer(customerID string) TxStep {
	return func(ctx context.Context, tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, lockCustomerSQL, customerID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.WarnContext(ctx, "Customer not found while locking", slog.String("customerID", customerID))
				return customer.ErrCustomerNotFound
			}
			r.logger.ErrorContext(ctx, "Failed to lock customer row", slog.Any("error", err))
			return translateDBError(err, r.logger)
		}
		return nil
	}
}
