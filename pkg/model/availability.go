package model

import (
	"time"
)

// AvailabilityQuery is the canonical, serializable shape of a single
// availability question. Cache keys are derived from its JSON encoding,
// so field order and types must stay stable.
type AvailabilityQuery struct {
	ResourceID           string    `json:"resource_id" validate:"required,mongodb"`
	CheckIn              time.Time `json:"check_in" validate:"required"`
	CheckOut             time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	ExcludeBookingID     string    `json:"exclude_booking_id,omitempty" validate:"omitempty,mongodb"`
	ExcludeReservationID string    `json:"exclude_reservation_id,omitempty" validate:"omitempty,mongodb"`
	IncludePending       bool      `json:"include_pending"`
}

// DatePeriod is a half-open [Start, End) date range.
type DatePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AvailabilityResult is the answer to a single availability query.
// It is a value, never persisted.
type AvailabilityResult struct {
	IsAvailable             bool           `json:"is_available"`
	Reason                  string         `json:"reason,omitempty"`
	ConflictingBookings     []*Booking     `json:"conflicting_bookings,omitempty"`
	ConflictingReservations []*Reservation `json:"conflicting_reservations,omitempty"`
	NextAvailablePeriod     *DatePeriod    `json:"next_available_period,omitempty"`
}

// CalendarDay describes one date of a resource's calendar. A checkout day is
// available for a new check-in under half-open date semantics even though a
// booking covers it.
type CalendarDay struct {
	Date          time.Time `json:"date"`
	IsAvailable   bool      `json:"is_available"`
	HasCheckIn    bool      `json:"has_check_in"`
	HasCheckOut   bool      `json:"has_check_out"`
	BookingID     string    `json:"booking_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
}

// AvailablePeriod is a maximal run of consecutive available days.
type AvailablePeriod struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Nights     int       `json:"nights"`
	MinStayMet bool      `json:"min_stay_met"`
}

// DateRangeAvailability summarizes a resource's calendar over a window.
type DateRangeAvailability struct {
	Periods       []AvailablePeriod `json:"periods"`
	TotalDays     int               `json:"total_days"`
	AvailableDays int               `json:"available_days"`
	OccupancyRate float64           `json:"occupancy_rate"`
}
