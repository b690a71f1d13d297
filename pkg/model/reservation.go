package model

import (
	"time"
)

const (
	ReservationStatusActive    = "active"
	ReservationStatusExpired   = "expired"
	ReservationStatusCancelled = "cancelled"
)

// Reservation is a time-bounded exclusive hold on a resource's date window,
// taken when a user enters checkout and released when payment completes,
// the user cancels, or the hold expires. Expired and cancelled are terminal;
// a reservation never returns to active.
type Reservation struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ResourceID string    `json:"resource_id" bson:"resource_id" validate:"required,mongodb"`
	UserID     string    `json:"user_id" bson:"user_id" validate:"required"`
	CheckIn    time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	Status     string    `json:"status" bson:"status" validate:"required,oneof=active expired cancelled"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at" validate:"required"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Blocks reports whether the reservation still conflicts with other windows
// at the given instant. ExpiresAt equal to now counts as already expired.
func (r *Reservation) Blocks(now time.Time) bool {
	return r.Status == ReservationStatusActive && r.ExpiresAt.After(now)
}

// HoldRequest is the input for taking a new hold at checkout time.
type HoldRequest struct {
	ResourceID string    `json:"resource_id" validate:"required,mongodb"`
	UserID     string    `json:"user_id" validate:"required"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
}
