package event

import (
	"context"
	"log/slog"
)

// LogPublisher records events in the log instead of a broker. Used when
// RabbitMQ is disabled.
type LogPublisher struct {
	logger *slog.Logger
}

var _ Publisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	p.logger.InfoContext(ctx, "Domain event", slog.String("routingKey", RoutingKeyCustomerCreated), slog.String("customerID", event.Payload.CustomerID))
	return nil
}

func (p *LogPublisher) PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error {
	p.logger.InfoContext(ctx, "Domain event", slog.String("routingKey", RoutingKeyCustomerUpdated), slog.String("customerID", event.Payload.CustomerID))
	return nil
}

func (p *LogPublisher) PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error {
	p.logger.InfoContext(ctx, "Domain event", slog.String("routingKey", RoutingKeyCustomerDeleted), slog.String("customerID", event.CustomerID))
	return nil
}

func (p *LogPublisher) PublishAddressChanged(ctx context.Context, event AddressChangedEvent) error {
	p.logger.InfoContext(ctx, "Domain event",
		slog.String("routingKey", event.RoutingKey),
		slog.String("customerID", event.Payload.CustomerID),
		slog.String("addressID", event.Payload.AddressID),
	)
	return nil
}
