package customer

import (
	"context"

	"customer-registry/internal/pkg/apperrors"
)

var (
	ErrCustomerNotFound = &apperrors.AppError{Code: "CUSTOMER_NOT_FOUND", Message: "customer not found", Cause: apperrors.ErrNotFound}

	ErrAddressNotFound = &apperrors.AppError{Code: "ADDRESS_NOT_FOUND", Message: "address not found", Cause: apperrors.ErrNotFound}

	ErrPrimaryAddressDelete = &apperrors.AppError{Code: "PRIMARY_ADDRESS", Message: "cannot delete primary address", Cause: apperrors.ErrConflict}

	ErrDuplicateID = &apperrors.AppError{Code: "DUPLICATE_ID", Message: "identifier already in use", Cause: apperrors.ErrAlreadyExists}
)

// Repository is the only writer of customers and addresses. Every mutating
// method is a single transaction: it either commits all of its writes or
// none of them.
type Repository interface {
	Create(ctx context.Context, customer *Customer, addressText string) (*Address, error)

	Update(ctx context.Context, customerID string, fields Fields) error

	Delete(ctx context.Context, customerID string) error

	FindByID(ctx context.Context, customerID string) (*Customer, error)

	FindAll(ctx context.Context) ([]*Customer, error)

	Search(ctx context.Context, criteria SearchCriteria) ([]*Customer, error)

	AddAddress(ctx context.Context, customerID, addressText string) (*Address, error)

	UpdateAddress(ctx context.Context, customerID, addressID, addressText string) error

	SetPrimaryAddress(ctx context.Context, customerID, addressID string) error

	DeleteAddress(ctx context.Context, customerID, addressID string) error

	FindAddresses(ctx context.Context, customerID string) ([]*Address, error)

	FindAddress(ctx context.Context, customerID, addressID string) (*Address, error)

	FindPrimaryAddressViolations(ctx context.Context) ([]PrimaryAddressViolation, error)
}
