package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	availerrors "lodgeworks/internal/availability/errors"
	"lodgeworks/internal/availability/events"
	"lodgeworks/internal/availability/repository"
	"lodgeworks/internal/availability/validator"
	"lodgeworks/pkg/cache"
	"lodgeworks/pkg/config"
	apperrors "lodgeworks/pkg/errors"
	"lodgeworks/pkg/interval"
	"lodgeworks/pkg/model"
	"lodgeworks/pkg/retry"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingService is the write surface the payment confirmation workflow
// calls. CreateBooking performs the authoritative final conflict check;
// every hold-time check before it is advisory.
type BookingService interface {
	CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	CancelBooking(ctx context.Context, id string) error
	DeleteBooking(ctx context.Context, id string) error
}

type bookingService struct {
	bookings     repository.BookingRepository
	reservations repository.ReservationRepository
	availability AvailabilityService
	cache        *cache.AvailabilityCache
	events       events.Publisher
	retry        *retry.Retryer
	validator    *validator.QueryValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	reservations repository.ReservationRepository,
	availability AvailabilityService,
	availabilityCache *cache.AvailabilityCache,
	publisher events.Publisher,
	retryer *retry.Retryer,
	queryValidator *validator.QueryValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		bookings:     bookings,
		reservations: reservations,
		availability: availability,
		cache:        availabilityCache,
		events:       publisher,
		retry:        retryer,
		validator:    queryValidator,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateBooking re-checks the window with every blocking booking and hold
// in scope, excluding only the caller's own hold, and inserts inside the
// same transaction. When the request converts a hold, the hold is released
// in the same transaction so it never double-counts against the window.
func (s *bookingService) CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Booking request cannot be empty")
	}
	if err := s.validator.ValidateBookingRequest(req); err != nil {
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}

	booking := &model.Booking{
		ResourceID: req.ResourceID,
		CheckIn:    interval.NormalizeDate(req.CheckIn),
		CheckOut:   interval.NormalizeDate(req.CheckOut),
		Status:     model.BookingStatusBooked,
	}

	err := s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := s.availability.CheckAvailability(sessCtx, &model.AvailabilityQuery{
			ResourceID:           booking.ResourceID,
			CheckIn:              booking.CheckIn,
			CheckOut:             booking.CheckOut,
			IncludePending:       true,
			ExcludeReservationID: req.FromHoldID,
		})
		if err != nil {
			return err
		}
		if !result.IsAvailable {
			conflict := apperrors.ResourceUnavailable(result.Reason)
			if result.NextAvailablePeriod != nil {
				conflict = conflict.WithDetails(map[string]any{
					"next_available_period": result.NextAvailablePeriod,
				})
			}
			return conflict
		}

		if err := s.bookings.Insert(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		if req.FromHoldID != "" {
			if err := s.releaseHold(sessCtx, req.FromHoldID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Booking rejected",
			"resource_id", req.ResourceID,
			"from_hold_id", req.FromHoldID,
			"error", err,
		)
		return nil, err
	}

	s.invalidate(ctx, booking.ResourceID)
	s.events.BookingConfirmed(ctx, booking)

	s.cfg.Log.Info("Booking confirmed",
		"id", booking.ID,
		"resource_id", booking.ResourceID,
		"check_in", booking.CheckIn,
		"check_out", booking.CheckOut,
	)
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	var booking *model.Booking
	err := s.retry.Do(ctx, "bookings.find_by_id", func(ctx context.Context) error {
		var innerErr error
		booking, innerErr = s.bookings.FindByID(ctx, id)
		return innerErr
	})
	if err != nil {
		return nil, s.bookingError(id, err)
	}
	return booking, nil
}

// CancelBooking flips the status and frees the window. Cancelling an
// already cancelled booking is a no-op.
func (s *bookingService) CancelBooking(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	var booking *model.Booking
	err := s.retry.Do(ctx, "bookings.find_by_id", func(ctx context.Context) error {
		var innerErr error
		booking, innerErr = s.bookings.FindByID(ctx, id)
		return innerErr
	})
	if err != nil {
		return s.bookingError(id, err)
	}
	if booking.Status == model.BookingStatusCancelled {
		return nil
	}

	err = s.retry.Do(ctx, "bookings.update_status", func(ctx context.Context) error {
		return s.bookings.UpdateStatus(ctx, id, model.BookingStatusCancelled)
	})
	if err != nil {
		return s.bookingError(id, err)
	}

	booking.Status = model.BookingStatusCancelled
	s.invalidate(ctx, booking.ResourceID)
	s.events.BookingCancelled(ctx, booking)

	s.cfg.Log.Info("Booking cancelled", "id", id, "resource_id", booking.ResourceID)
	return nil
}

// DeleteBooking physically removes the record. It exists for admin and
// test-data cleanup; normal flows go through CancelBooking.
func (s *bookingService) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	var booking *model.Booking
	err := s.retry.Do(ctx, "bookings.find_by_id", func(ctx context.Context) error {
		var innerErr error
		booking, innerErr = s.bookings.FindByID(ctx, id)
		return innerErr
	})
	if err != nil {
		return s.bookingError(id, err)
	}

	err = s.retry.Do(ctx, "bookings.delete", func(ctx context.Context) error {
		return s.bookings.Delete(ctx, id)
	})
	if err != nil {
		return s.bookingError(id, err)
	}

	s.invalidate(ctx, booking.ResourceID)
	s.cfg.Log.Info("Booking deleted", "id", id, "resource_id", booking.ResourceID)
	return nil
}

// releaseHold marks the converted hold cancelled. A hold that already
// lapsed or was swept is fine; the booking stands on its own check.
func (s *bookingService) releaseHold(ctx context.Context, holdID string) error {
	reservation, err := s.reservations.FindByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, availerrors.ErrNotFound) || errors.Is(err, availerrors.ErrInvalidID) {
			return apperrors.InvalidInput(fmt.Sprintf("Unknown hold: %s", holdID))
		}
		return apperrors.Internal("Failed to load hold for conversion", err)
	}
	if reservation.Status != model.ReservationStatusActive {
		return nil
	}
	if err := s.reservations.UpdateStatus(ctx, holdID, model.ReservationStatusCancelled); err != nil {
		return apperrors.Internal("Failed to release converted hold", err)
	}
	return nil
}

func (s *bookingService) invalidate(ctx context.Context, resourceID string) {
	if s.cache != nil {
		s.cache.InvalidateResource(ctx, resourceID)
	}
}

func (s *bookingService) bookingError(id string, err error) error {
	if errors.Is(err, availerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, availerrors.ErrInvalidID) {
		return apperrors.InvalidInput(fmt.Sprintf("Invalid booking ID format: %s", id))
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Failed to access booking", err)
}
