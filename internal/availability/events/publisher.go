// Package events publishes the engine's domain events. Downstream services
// (affiliate bookkeeping, notifications) subscribe elsewhere; nothing in
// this service consumes them.
package events

import (
	"context"

	"lodgeworks/pkg/kafka"
	"lodgeworks/pkg/logger"
	"lodgeworks/pkg/model"
)

const (
	TopicBookings     = "lodgeworks.bookings"
	TopicReservations = "lodgeworks.reservations"

	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventHoldCreated      = "hold.created"
	EventHoldReleased     = "hold.released"
)

// Publisher emits domain events. Publishing is best effort: a failed emit is
// logged and never fails the triggering mutation.
type Publisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
	HoldCreated(ctx context.Context, reservation *model.Reservation)
	HoldReleased(ctx context.Context, reservation *model.Reservation, event string)
}

type kafkaPublisher struct {
	bookings     *kafka.Producer
	reservations *kafka.Producer
	log          *logger.Logger
	source       string
}

func NewKafkaPublisher(bookings, reservations *kafka.Producer, log *logger.Logger, source string) Publisher {
	return &kafkaPublisher{
		bookings:     bookings,
		reservations: reservations,
		log:          log,
		source:       source,
	}
}

func (p *kafkaPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, p.bookings, EventBookingConfirmed, booking.ResourceID, booking)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, p.bookings, EventBookingCancelled, booking.ResourceID, booking)
}

func (p *kafkaPublisher) HoldCreated(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, p.reservations, EventHoldCreated, reservation.ResourceID, reservation)
}

func (p *kafkaPublisher) HoldReleased(ctx context.Context, reservation *model.Reservation, event string) {
	p.publish(ctx, p.reservations, event, reservation.ResourceID, reservation)
}

func (p *kafkaPublisher) publish(ctx context.Context, producer *kafka.Producer, eventType, key string, payload any) {
	if producer == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(p.source).
		Build()

	if err := producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish domain event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
	}
}

// NopPublisher drops every event. Used in tests and when Kafka is not
// configured.
type NopPublisher struct{}

func (NopPublisher) BookingConfirmed(context.Context, *model.Booking)         {}
func (NopPublisher) BookingCancelled(context.Context, *model.Booking)         {}
func (NopPublisher) HoldCreated(context.Context, *model.Reservation)          {}
func (NopPublisher) HoldReleased(context.Context, *model.Reservation, string) {}
