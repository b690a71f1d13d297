package validator

import (
	"fmt"
	"time"

	"lodgeworks/pkg/logger"
	"lodgeworks/pkg/model"

	"github.com/go-playground/validator/v10"
)

// QueryValidator checks the shapes the engine accepts before any store
// access. Struct tags cover presence and id format; date-window logic is
// checked explicitly because zero times satisfy `required` edge cases badly.
type QueryValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewQueryValidator(log *logger.Logger) *QueryValidator {
	return &QueryValidator{
		validate: validator.New(),
		logger:   log,
	}
}

// ValidateWindow checks that both ends are set and checkOut strictly follows
// checkIn. Both ends must be date-granular after normalization upstream.
func (v *QueryValidator) ValidateWindow(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return fmt.Errorf("check-in and check-out dates are required")
	}
	if !checkOut.After(checkIn) {
		return fmt.Errorf("check-out date must be after check-in date")
	}
	return nil
}

func (v *QueryValidator) ValidateQuery(q *model.AvailabilityQuery) error {
	if err := v.validate.Struct(q); err != nil {
		v.logger.Warn("Availability query validation failed", "error", err)
		return err
	}
	return v.ValidateWindow(q.CheckIn, q.CheckOut)
}

func (v *QueryValidator) ValidateHoldRequest(req *model.HoldRequest) error {
	if err := v.validate.Struct(req); err != nil {
		v.logger.Warn("Hold request validation failed", "error", err)
		return err
	}
	return v.ValidateWindow(req.CheckIn, req.CheckOut)
}

func (v *QueryValidator) ValidateBookingRequest(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		v.logger.Warn("Booking request validation failed", "error", err)
		return err
	}
	return v.ValidateWindow(req.CheckIn, req.CheckOut)
}

func (v *QueryValidator) ValidateBooking(b *model.Booking) error {
	if err := v.validate.Struct(b); err != nil {
		v.logger.Warn("Booking validation failed", "error", err)
		return err
	}
	return v.ValidateWindow(b.CheckIn, b.CheckOut)
}
