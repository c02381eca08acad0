package event

import (
	"context"
	"time"
)

const (
	RoutingKeyCustomerCreated       = "customer.created"
	RoutingKeyCustomerUpdated       = "customer.updated"
	RoutingKeyCustomerDeleted       = "customer.deleted"
	RoutingKeyAddressAdded          = "address.added"
	RoutingKeyAddressUpdated        = "address.updated"
	RoutingKeyAddressPrimaryChanged = "address.primary_changed"
	RoutingKeyAddressDeleted        = "address.deleted"
)

type CustomerEventPayload struct {
	CustomerID     string    `json:"customerId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	PhoneNumber    string    `json:"phoneNumber"`
	Email          string    `json:"email"`
	PrimaryAddress string    `json:"primaryAddress,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type AddressEventPayload struct {
	AddressID  string `json:"addressId"`
	CustomerID string `json:"customerId"`
	Address    string `json:"address,omitempty"`
	IsPrimary  bool   `json:"isPrimary"`
}

type CustomerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerUpdatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerDeletedEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	CustomerID string    `json:"customerId"`
}

// AddressChangedEvent covers every address mutation; RoutingKey tells them apart.
type AddressChangedEvent struct {
	RoutingKey string              `json:"-"`
	Timestamp  time.Time           `json:"timestamp"`
	Payload    AddressEventPayload `json:"payload"`
}

func (p *RabbitMQEventPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	return p.publish(ctx, RoutingKeyCustomerCreated, event)
}

func (p *RabbitMQEventPublisher) PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error {
	return p.publish(ctx, RoutingKeyCustomerUpdated, event)
}

func (p *RabbitMQEventPublisher) PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error {
	return p.publish(ctx, RoutingKeyCustomerDeleted, event)
}

func (p *RabbitMQEventPublisher) PublishAddressChanged(ctx context.Context, event AddressChangedEvent) error {
	return p.publish(ctx, event.RoutingKey, event)
}

var _ Publisher = (*RabbitMQEventPublisher)(nil)
