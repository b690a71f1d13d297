package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lodgeworks/internal/availability/events"
	"lodgeworks/internal/availability/validator"
	apperrors "lodgeworks/pkg/errors"
	"lodgeworks/pkg/interval"
	"lodgeworks/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHoldService(
	bookings *mockBookingRepo,
	reservations *mockReservationRepo,
	resources *mockResourceRepo,
) (*holdService, *engine) {
	e, cfg := newTestEngine(bookings, reservations, resources)
	s := &holdService{
		reservations: reservations,
		availability: e,
		events:       events.NopPublisher{},
		retry:        testRetryer(cfg),
		validator:    validator.NewQueryValidator(cfg.Log),
		cfg:          cfg,
		now:          func() time.Time { return fixedNow },
	}
	return s, e
}

func holdRequest() *model.HoldRequest {
	return &model.HoldRequest{
		ResourceID: testResourceID,
		UserID:     testUserID,
		CheckIn:    day(10),
		CheckOut:   day(14),
	}
}

func TestCreateHold_Success(t *testing.T) {
	var inserted *model.Reservation
	reservations := &mockReservationRepo{
		InsertFunc: func(ctx context.Context, r *model.Reservation) error {
			r.ID = testReservationID
			inserted = r
			return nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	hold, err := s.CreateHold(context.Background(), holdRequest())

	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.Equal(t, testReservationID, hold.ID)
	assert.Equal(t, model.ReservationStatusActive, hold.Status)
	assert.Equal(t, fixedNow.Add(45*time.Minute), hold.ExpiresAt)
	assert.Equal(t, day(10), hold.CheckIn)
	assert.Equal(t, day(14), hold.CheckOut)
}

func TestCreateHold_RejectedByExistingHold(t *testing.T) {
	other := activeHold(day(12), day(16))
	other.UserID = "someone-else"
	inserts := 0
	reservations := &mockReservationRepo{
		FindOverlappingFunc: func(ctx context.Context, resourceID string, checkIn, checkOut, now time.Time, excludeID string) ([]*model.Reservation, error) {
			if interval.Overlaps(other.CheckIn, other.CheckOut, checkIn, checkOut) {
				return []*model.Reservation{other}, nil
			}
			return nil, nil
		},
		InsertFunc: func(ctx context.Context, r *model.Reservation) error {
			inserts++
			return nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	_, err := s.CreateHold(context.Background(), holdRequest())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Equal(t, 0, inserts, "conflicting hold must not be persisted")
}

func TestCreateHold_RejectedByBooking(t *testing.T) {
	existing := activeBooking(day(12), day(16))
	bookings := &mockBookingRepo{
		FindOverlappingFunc: func(ctx context.Context, resourceID string, checkIn, checkOut time.Time, excludeID string) ([]*model.Booking, error) {
			return []*model.Booking{existing}, nil
		},
	}
	s, _ := newTestHoldService(bookings, &mockReservationRepo{}, &mockResourceRepo{})

	_, err := s.CreateHold(context.Background(), holdRequest())

	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Details, "next_available_period")
}

func TestCreateHold_ConcurrentOnlyOneWins(t *testing.T) {
	// Serialize the transactional section the way the store would and let
	// two identical holds race; exactly one may land.
	var mu sync.Mutex
	var stored *model.Reservation
	reservations := &mockReservationRepo{
		FindOverlappingFunc: func(ctx context.Context, resourceID string, checkIn, checkOut, now time.Time, excludeID string) ([]*model.Reservation, error) {
			if stored != nil && stored.Blocks(now) {
				return []*model.Reservation{stored}, nil
			}
			return nil, nil
		},
		InsertFunc: func(ctx context.Context, r *model.Reservation) error {
			r.ID = testReservationID
			stored = r
			return nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			_, errs[i] = s.CreateHold(context.Background(), holdRequest())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
		}
	}
	assert.Equal(t, 1, successes)
}

func TestGetHold_ReportsLapsedHoldAsExpired(t *testing.T) {
	lapsed := activeHold(day(10), day(14))
	lapsed.ExpiresAt = fixedNow.Add(-time.Second)
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return lapsed, nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	hold, err := s.GetHold(context.Background(), testReservationID)

	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusExpired, hold.Status)
}

func TestGetHold_ExpiryBoundaryCountsAsExpired(t *testing.T) {
	boundary := activeHold(day(10), day(14))
	boundary.ExpiresAt = fixedNow
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return boundary, nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	hold, err := s.GetHold(context.Background(), testReservationID)

	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusExpired, hold.Status)
}

func TestGetHold_NotFound(t *testing.T) {
	s, _ := newTestHoldService(&mockBookingRepo{}, &mockReservationRepo{}, &mockResourceRepo{})

	_, err := s.GetHold(context.Background(), testReservationID)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCancelHold_Owner(t *testing.T) {
	hold := activeHold(day(10), day(14))
	var updatedStatus string
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return hold, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			updatedStatus = status
			return nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	err := s.CancelHold(context.Background(), testReservationID, testUserID, false)

	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCancelled, updatedStatus)
}

func TestCancelHold_NonOwnerForbidden(t *testing.T) {
	hold := activeHold(day(10), day(14))
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return hold, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			t.Fatal("status must not change for a forbidden cancel")
			return nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	err := s.CancelHold(context.Background(), testReservationID, "intruder", false)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestCancelHold_AdminOverridesOwnership(t *testing.T) {
	hold := activeHold(day(10), day(14))
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return hold, nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	err := s.CancelHold(context.Background(), testReservationID, "support-staff", true)

	assert.NoError(t, err)
}

func TestCancelHold_AlreadyCancelledIsNoop(t *testing.T) {
	hold := activeHold(day(10), day(14))
	hold.Status = model.ReservationStatusCancelled
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return hold, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			t.Fatal("repeated cancel must not write")
			return nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	err := s.CancelHold(context.Background(), testReservationID, testUserID, false)

	assert.NoError(t, err)
}

func TestCancelHold_ExpiredRejected(t *testing.T) {
	hold := activeHold(day(10), day(14))
	hold.Status = model.ReservationStatusExpired
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return hold, nil
		},
	}
	s, _ := newTestHoldService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	err := s.CancelHold(context.Background(), testReservationID, testUserID, false)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}
