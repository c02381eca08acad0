package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"customer-registry/internal/event"
	"customer-registry/internal/infrastructure/monitoring"
	"customer-registry/internal/pkg/apperrors"
	"customer-registry/internal/validation"
)

const (
	inputValidationPassed = "Input validation passed"
	customerNotFound      = "Customer not found by repository"
	addressNotFound       = "Address not found by repository"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, fields Fields, addressText string) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, fields Fields) error
	DeleteCustomer(ctx context.Context, customerID string) error
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	SearchCustomers(ctx context.Context, criteria SearchCriteria) ([]*Customer, error)
	AddAddress(ctx context.Context, customerID, addressText string) (*Address, error)
	ListAddresses(ctx context.Context, customerID string) ([]*Address, error)
	GetAddress(ctx context.Context, customerID, addressID string) (*Address, error)
	UpdateAddress(ctx context.Context, customerID, addressID, addressText string) error
	SetPrimaryAddress(ctx context.Context, customerID, addressID string) error
	DeleteAddress(ctx context.Context, customerID, addressID string) error
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

func NewCustomerService(repo Repository, publisher event.Publisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	if publisher == nil {
		logger.Warn("Warning: No event publisher provided to NewCustomerService, events will only be logged")
		publisher = event.NewLogPublisher(logger)
	}

	return &customerService{
		repo:   repo,
		pub:    publisher,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	payload := event.CustomerEventPayload{
		CustomerID:  cust.ID,
		FirstName:   cust.FirstName,
		LastName:    cust.LastName,
		PhoneNumber: cust.PhoneNumber,
		Email:       cust.Email,
		CreatedAt:   cust.CreatedAt,
		UpdatedAt:   cust.UpdatedAt,
	}
	if primary := cust.PrimaryAddress(); primary != nil {
		payload.PrimaryAddress = primary.Text
	}
	return payload
}

func toValidationFields(f Fields) validation.CustomerFields {
	return validation.CustomerFields{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
		Email:       f.Email,
	}
}

func requireID(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", apperrors.ErrInvalidArgument, name)
	}
	return nil
}

// rejectionReason labels a failed operation for the rejected-operations counter.
func rejectionReason(err error) string {
	var vErr *apperrors.ValidationError
	switch {
	case errors.As(err, &vErr) && vErr.Reason != "":
		return string(vErr.Reason)
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidArgument):
		return "invalid-argument"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not-found"
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		return "conflict"
	default:
		return "internal"
	}
}

// notFound keeps the repository's specific not-found error when it has one.
func notFound(err error, fallback error) error {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return ErrCustomerNotFound
	case errors.Is(err, ErrAddressNotFound):
		return ErrAddressNotFound
	}
	return fallback
}

func (s *customerService) reject(ctx context.Context, operation string, err error) error {
	reason := rejectionReason(err)
	monitoring.RecordRejected(operation, reason)
	level := slog.LevelWarn
	if reason == "internal" {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "Operation rejected", slog.String("operation", operation), slog.String("reason", reason), slog.Any("error", err))
	return err
}

func (s *customerService) publishAddressEvent(ctx context.Context, routingKey string, addr *Address) {
	evt := event.AddressChangedEvent{
		RoutingKey: routingKey,
		Timestamp:  time.Now(),
		Payload: event.AddressEventPayload{
			AddressID:  addr.AddressID,
			CustomerID: addr.CustomerID,
			Address:    addr.Text,
			IsPrimary:  addr.IsPrimary,
		},
	}
	if err := s.pub.PublishAddressChanged(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Address change committed, but FAILED to publish event", slog.String("routingKey", routingKey), slog.Any("error", err))
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, fields Fields, addressText string) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	if err := validation.ValidateNewCustomer(toValidationFields(fields), addressText); err != nil {
		return nil, s.reject(ctx, "CreateCustomer", err)
	}
	addressText = strings.TrimSpace(addressText)
	s.logger.DebugContext(ctx, inputValidationPassed)

	cust := NewCustomer(fields)
	primary, err := s.repo.Create(ctx, cust, addressText)
	if err != nil {
		s.reject(ctx, "CreateCustomer", err)
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}
	cust.Addresses = []*Address{primary}
	monitoring.RecordCustomerCreated()

	log := s.logger.With(slog.String("customerID", cust.ID))
	log.InfoContext(ctx, "Successfully saved new customer, publishing creation event")
	createdEvent := event.CustomerCreatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(cust),
	}
	if pubErr := s.pub.PublishCustomerCreated(ctx, createdEvent); pubErr != nil {
		log.ErrorContext(ctx, "Customer created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	log.InfoContext(ctx, "Successfully created new customer")
	return cust, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, customerID string, fields Fields) error {
	log := s.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to update customer")

	if err := requireID("customer id", customerID); err != nil {
		return s.reject(ctx, "UpdateCustomer", err)
	}
	if err := validation.ValidateCustomerFields(toValidationFields(fields)); err != nil {
		return s.reject(ctx, "UpdateCustomer", err)
	}
	log.DebugContext(ctx, inputValidationPassed)

	if err := s.repo.Update(ctx, customerID, fields); err != nil {
		s.reject(ctx, "UpdateCustomer", err)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return notFound(err, ErrCustomerNotFound)
		}
		return fmt.Errorf("failed to update customer %s: %w", customerID, err)
	}

	updated, fetchErr := s.repo.FindByID(ctx, customerID)
	if fetchErr != nil {
		log.ErrorContext(ctx, "Successfully updated customer, but FAILED to re-fetch it for event publishing", slog.Any("error", fetchErr))
	} else if pubErr := s.pub.PublishCustomerUpdated(ctx, event.CustomerUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(updated),
	}); pubErr != nil {
		log.ErrorContext(ctx, "Customer updated, but FAILED to publish update event", slog.Any("error", pubErr))
	}

	log.InfoContext(ctx, "Successfully updated customer")
	return nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID string) error {
	log := s.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to delete customer and its addresses")

	if err := requireID("customer id", customerID); err != nil {
		return s.reject(ctx, "DeleteCustomer", err)
	}

	if err := s.repo.Delete(ctx, customerID); err != nil {
		s.reject(ctx, "DeleteCustomer", err)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to delete customer %s: %w", customerID, err)
	}
	monitoring.RecordCustomerDeleted()

	if pubErr := s.pub.PublishCustomerDeleted(ctx, event.CustomerDeletedEvent{Timestamp: time.Now(), CustomerID: customerID}); pubErr != nil {
		log.ErrorContext(ctx, "Customer deleted, but FAILED to publish deletion event", slog.Any("error", pubErr))
	}

	log.InfoContext(ctx, "Successfully deleted customer")
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	log := s.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to get customer by ID")

	if err := requireID("customer id", customerID); err != nil {
		return nil, err
	}

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return nil, ErrCustomerNotFound
		}
		log.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}

	addresses, err := s.repo.FindAddresses(ctx, customerID)
	if err != nil {
		log.ErrorContext(ctx, "Repository error loading customer addresses", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load addresses for customer %s: %w", customerID, err)
	}
	cust.Addresses = addresses

	log.InfoContext(ctx, "Successfully retrieved customer", slog.Int("addresses", len(addresses)))
	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list all customers")

	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) SearchCustomers(ctx context.Context, criteria SearchCriteria) ([]*Customer, error) {
	criteria = criteria.Normalize()
	s.logger.InfoContext(ctx, "Attempting to search customers",
		slog.Bool("byName", criteria.Name != ""),
		slog.Bool("byEmail", criteria.Email != ""),
		slog.Bool("byPhone", criteria.PhoneNumber != ""),
	)

	customers, err := s.repo.Search(ctx, criteria)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error searching customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully searched customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) AddAddress(ctx context.Context, customerID, addressText string) (*Address, error) {
	log := s.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to add address")

	if err := requireID("customer id", customerID); err != nil {
		return nil, s.reject(ctx, "AddAddress", err)
	}
	if err := validation.ValidateAddress(addressText); err != nil {
		return nil, s.reject(ctx, "AddAddress", err)
	}

	addr, err := s.repo.AddAddress(ctx, customerID, strings.TrimSpace(addressText))
	if err != nil {
		s.reject(ctx, "AddAddress", err)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return nil, notFound(err, ErrCustomerNotFound)
		}
		return nil, fmt.Errorf("failed to add address for customer %s: %w", customerID, err)
	}
	monitoring.RecordAddressAdded()
	s.publishAddressEvent(ctx, event.RoutingKeyAddressAdded, addr)

	log.InfoContext(ctx, "Successfully added address", slog.String("addressID", addr.AddressID))
	return addr, nil
}

func (s *customerService) ListAddresses(ctx context.Context, customerID string) ([]*Address, error) {
	log := s.logger.With(slog.String("customerID", customerID))
	log.InfoContext(ctx, "Attempting to list addresses")

	if err := requireID("customer id", customerID); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}

	addresses, err := s.repo.FindAddresses(ctx, customerID)
	if err != nil {
		log.ErrorContext(ctx, "Repository error listing addresses", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list addresses for customer %s: %w", customerID, err)
	}
	return addresses, nil
}

func (s *customerService) GetAddress(ctx context.Context, customerID, addressID string) (*Address, error) {
	log := s.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))

	if err := requireID("customer id", customerID); err != nil {
		return nil, err
	}
	if err := requireID("address id", addressID); err != nil {
		return nil, err
	}

	addr, err := s.repo.FindAddress(ctx, customerID, addressID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, addressNotFound)
			return nil, notFound(err, ErrAddressNotFound)
		}
		log.ErrorContext(ctx, "Repository error finding address", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get address %s: %w", addressID, err)
	}
	return addr, nil
}

func (s *customerService) UpdateAddress(ctx context.Context, customerID, addressID, addressText string) error {
	log := s.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))
	log.InfoContext(ctx, "Attempting to update address text")

	if err := requireID("customer id", customerID); err != nil {
		return s.reject(ctx, "UpdateAddress", err)
	}
	if err := requireID("address id", addressID); err != nil {
		return s.reject(ctx, "UpdateAddress", err)
	}
	if err := validation.ValidateAddress(addressText); err != nil {
		return s.reject(ctx, "UpdateAddress", err)
	}
	addressText = strings.TrimSpace(addressText)

	if err := s.repo.UpdateAddress(ctx, customerID, addressID, addressText); err != nil {
		s.reject(ctx, "UpdateAddress", err)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, addressNotFound)
			return notFound(err, ErrAddressNotFound)
		}
		return fmt.Errorf("failed to update address %s: %w", addressID, err)
	}

	s.publishAddressEvent(ctx, event.RoutingKeyAddressUpdated, &Address{AddressID: addressID, CustomerID: customerID, Text: addressText})
	log.InfoContext(ctx, "Successfully updated address")
	return nil
}

func (s *customerService) SetPrimaryAddress(ctx context.Context, customerID, addressID string) error {
	log := s.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))
	log.InfoContext(ctx, "Attempting to change primary address")

	if err := requireID("customer id", customerID); err != nil {
		return s.reject(ctx, "SetPrimaryAddress", err)
	}
	if err := requireID("address id", addressID); err != nil {
		return s.reject(ctx, "SetPrimaryAddress", err)
	}

	if err := s.repo.SetPrimaryAddress(ctx, customerID, addressID); err != nil {
		s.reject(ctx, "SetPrimaryAddress", err)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, addressNotFound)
			return notFound(err, ErrAddressNotFound)
		}
		return fmt.Errorf("failed to set primary address %s: %w", addressID, err)
	}
	monitoring.RecordPrimarySwap()

	s.publishAddressEvent(ctx, event.RoutingKeyAddressPrimaryChanged, &Address{AddressID: addressID, CustomerID: customerID, IsPrimary: true})
	log.InfoContext(ctx, "Successfully changed primary address")
	return nil
}

func (s *customerService) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	log := s.logger.With(slog.String("customerID", customerID), slog.String("addressID", addressID))
	log.InfoContext(ctx, "Attempting to delete address")

	if err := requireID("customer id", customerID); err != nil {
		return s.reject(ctx, "DeleteAddress", err)
	}
	if err := requireID("address id", addressID); err != nil {
		return s.reject(ctx, "DeleteAddress", err)
	}

	if err := s.repo.DeleteAddress(ctx, customerID, addressID); err != nil {
		s.reject(ctx, "DeleteAddress", err)
		switch {
		case errors.Is(err, ErrPrimaryAddressDelete):
			return ErrPrimaryAddressDelete
		case errors.Is(err, apperrors.ErrNotFound):
			log.WarnContext(ctx, addressNotFound)
			return notFound(err, ErrAddressNotFound)
		}
		return fmt.Errorf("failed to delete address %s: %w", addressID, err)
	}

	s.publishAddressEvent(ctx, event.RoutingKeyAddressDeleted, &Address{AddressID: addressID, CustomerID: customerID})
	log.InfoContext(ctx, "Successfully deleted address")
	return nil
}
