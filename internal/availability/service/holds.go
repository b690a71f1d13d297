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

// ReservationService drives the hold lifecycle: active on creation,
// expired or cancelled terminally, never back.
type ReservationService interface {
	CreateHold(ctx context.Context, req *model.HoldRequest) (*model.Reservation, error)
	GetHold(ctx context.Context, id string) (*model.Reservation, error)
	CancelHold(ctx context.Context, id, userID string, isAdmin bool) error
}

type holdService struct {
	reservations repository.ReservationRepository
	availability AvailabilityService
	cache        *cache.AvailabilityCache
	events       events.Publisher
	retry        *retry.Retryer
	validator    *validator.QueryValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewHoldService(
	reservations repository.ReservationRepository,
	availability AvailabilityService,
	availabilityCache *cache.AvailabilityCache,
	publisher events.Publisher,
	retryer *retry.Retryer,
	queryValidator *validator.QueryValidator,
	cfg *config.Config,
) ReservationService {
	return &holdService{
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

// CreateHold re-checks availability (other pending holds included) and
// persists the new hold inside one transaction, so a conflict leaves
// nothing behind. The re-check narrows the check-then-act race with
// concurrent holds but cannot close it; payment confirmation performs the
// authoritative final check.
func (s *holdService) CreateHold(ctx context.Context, req *model.HoldRequest) (*model.Reservation, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Hold request cannot be empty")
	}
	if err := s.validator.ValidateHoldRequest(req); err != nil {
		return nil, apperrors.Validation("Invalid hold request", map[string]any{"error": err.Error()})
	}

	now := s.now()
	reservation := &model.Reservation{
		ResourceID: req.ResourceID,
		UserID:     req.UserID,
		CheckIn:    interval.NormalizeDate(req.CheckIn),
		CheckOut:   interval.NormalizeDate(req.CheckOut),
		Status:     model.ReservationStatusActive,
		ExpiresAt:  now.Add(s.cfg.HoldDuration()),
	}

	err := s.reservations.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := s.availability.CheckAvailability(sessCtx, &model.AvailabilityQuery{
			ResourceID:     reservation.ResourceID,
			CheckIn:        reservation.CheckIn,
			CheckOut:       reservation.CheckOut,
			IncludePending: true,
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

		if err := s.reservations.Insert(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create hold", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Hold creation rejected",
			"resource_id", req.ResourceID,
			"user_id", req.UserID,
			"error", err,
		)
		return nil, err
	}

	s.invalidate(ctx, reservation.ResourceID)
	s.events.HoldCreated(ctx, reservation)

	s.cfg.Log.Info("Hold created",
		"id", reservation.ID,
		"resource_id", reservation.ResourceID,
		"user_id", reservation.UserID,
		"expires_at", reservation.ExpiresAt,
	)
	return reservation, nil
}

// GetHold returns the hold, reporting a lapsed-but-unswept hold as expired.
// The persisted transition stays with the sweeper.
func (s *holdService) GetHold(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Hold ID cannot be empty")
	}

	var reservation *model.Reservation
	err := s.retry.Do(ctx, "reservations.find_by_id", func(ctx context.Context) error {
		var innerErr error
		reservation, innerErr = s.reservations.FindByID(ctx, id)
		return innerErr
	})
	if err != nil {
		return nil, s.holdError(id, err)
	}

	if reservation.Status == model.ReservationStatusActive && !reservation.ExpiresAt.After(s.now()) {
		reservation.Status = model.ReservationStatusExpired
	}
	return reservation, nil
}

func (s *holdService) CancelHold(ctx context.Context, id, userID string, isAdmin bool) error {
	if id == "" {
		return apperrors.InvalidInput("Hold ID cannot be empty")
	}

	var reservation *model.Reservation
	err := s.retry.Do(ctx, "reservations.find_by_id", func(ctx context.Context) error {
		var innerErr error
		reservation, innerErr = s.reservations.FindByID(ctx, id)
		return innerErr
	})
	if err != nil {
		return s.holdError(id, err)
	}

	if reservation.UserID != userID && !isAdmin {
		return apperrors.Forbidden("Only the hold owner or an admin may cancel it")
	}

	switch reservation.Status {
	case model.ReservationStatusCancelled:
		// Repeated cancel is a no-op.
		return nil
	case model.ReservationStatusExpired:
		return apperrors.InvalidInput("Hold is no longer active")
	}

	err = s.retry.Do(ctx, "reservations.update_status", func(ctx context.Context) error {
		return s.reservations.UpdateStatus(ctx, id, model.ReservationStatusCancelled)
	})
	if err != nil {
		return s.holdError(id, err)
	}

	reservation.Status = model.ReservationStatusCancelled
	s.invalidate(ctx, reservation.ResourceID)
	s.events.HoldReleased(ctx, reservation, events.EventHoldReleased)

	s.cfg.Log.Info("Hold cancelled", "id", id, "resource_id", reservation.ResourceID, "by_admin", isAdmin)
	return nil
}

func (s *holdService) invalidate(ctx context.Context, resourceID string) {
	if s.cache != nil {
		s.cache.InvalidateResource(ctx, resourceID)
	}
}

func (s *holdService) holdError(id string, err error) error {
	if errors.Is(err, availerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Hold", id)
	}
	if errors.Is(err, availerrors.ErrInvalidID) {
		return apperrors.InvalidInput(fmt.Sprintf("Invalid hold ID format: %s", id))
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Failed to access hold", err)
}
