package model

import (
	"time"
)

const (
	BookingStatusBooked    = "booked"
	BookingStatusCancelled = "cancelled"
)

// Booking is a confirmed stay on a resource. It is created by the payment
// confirmation workflow after a final availability re-check and is never
// physically removed; cancellation flips the status.
type Booking struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ResourceID string    `json:"resource_id" bson:"resource_id" validate:"required,mongodb"`
	CheckIn    time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	Status     string    `json:"status" bson:"status" validate:"required,oneof=booked cancelled"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsActive reports whether the booking still blocks its date window.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusBooked
}

// BookingRequest is the input for confirming a stay. FromHoldID, when set,
// names the hold being converted; that hold is excluded from the final
// conflict check so it cannot block its own conversion.
type BookingRequest struct {
	ResourceID string    `json:"resource_id" validate:"required,mongodb"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	FromHoldID string    `json:"from_hold_id,omitempty" validate:"omitempty,mongodb"`
}
