package service

import (
	"context"
	"testing"
	"time"

	"lodgeworks/internal/availability/events"
	"lodgeworks/internal/availability/validator"
	apperrors "lodgeworks/pkg/errors"
	"lodgeworks/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBookingService(
	bookings *mockBookingRepo,
	reservations *mockReservationRepo,
	resources *mockResourceRepo,
) *bookingService {
	e, cfg := newTestEngine(bookings, reservations, resources)
	return &bookingService{
		bookings:     bookings,
		reservations: reservations,
		availability: e,
		events:       events.NopPublisher{},
		retry:        testRetryer(cfg),
		validator:    validator.NewQueryValidator(cfg.Log),
		cfg:          cfg,
		now:          func() time.Time { return fixedNow },
	}
}

func bookingRequest() *model.BookingRequest {
	return &model.BookingRequest{
		ResourceID: testResourceID,
		CheckIn:    day(10),
		CheckOut:   day(14),
	}
}

func TestCreateBooking_Success(t *testing.T) {
	var inserted *model.Booking
	bookings := &mockBookingRepo{
		InsertFunc: func(ctx context.Context, b *model.Booking) error {
			b.ID = testBookingID
			inserted = b
			return nil
		},
	}
	s := newTestBookingService(bookings, &mockReservationRepo{}, &mockResourceRepo{})

	booking, err := s.CreateBooking(context.Background(), bookingRequest())

	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.Equal(t, testBookingID, booking.ID)
	assert.Equal(t, model.BookingStatusBooked, booking.Status)
}

func TestCreateBooking_OwnHoldDoesNotBlockConversion(t *testing.T) {
	own := activeHold(day(10), day(14))
	var releasedHold string
	reservations := &mockReservationRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return own, nil
		},
		FindOverlappingFunc: func(ctx context.Context, resourceID string, checkIn, checkOut, now time.Time, excludeID string) ([]*model.Reservation, error) {
			if excludeID == own.ID {
				return nil, nil
			}
			return []*model.Reservation{own}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			releasedHold = id
			assert.Equal(t, model.ReservationStatusCancelled, status)
			return nil
		},
	}
	s := newTestBookingService(&mockBookingRepo{}, reservations, &mockResourceRepo{})

	req := bookingRequest()
	req.FromHoldID = testReservationID
	_, err := s.CreateBooking(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, testReservationID, releasedHold)
}

func TestCreateBooking_ForeignHoldBlocks(t *testing.T) {
	foreign := activeHold(day(10), day(14))
	inserts := 0
	reservations := &mockReservationRepo{
		FindOverlappingFunc: func(ctx context.Context, resourceID string, checkIn, checkOut, now time.Time, excludeID string) ([]*model.Reservation, error) {
			return []*model.Reservation{foreign}, nil
		},
	}
	bookings := &mockBookingRepo{
		InsertFunc: func(ctx context.Context, b *model.Booking) error {
			inserts++
			return nil
		},
	}
	s := newTestBookingService(bookings, reservations, &mockResourceRepo{})

	_, err := s.CreateBooking(context.Background(), bookingRequest())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Equal(t, 0, inserts)
}

func TestCancelBooking(t *testing.T) {
	existing := activeBooking(day(10), day(14))
	var updatedStatus string
	bookings := &mockBookingRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			updatedStatus = status
			return nil
		},
	}
	s := newTestBookingService(bookings, &mockReservationRepo{}, &mockResourceRepo{})

	err := s.CancelBooking(context.Background(), testBookingID)

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, updatedStatus)
}

func TestCancelBooking_AlreadyCancelledIsNoop(t *testing.T) {
	existing := activeBooking(day(10), day(14))
	existing.Status = model.BookingStatusCancelled
	bookings := &mockBookingRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			t.Fatal("repeated cancel must not write")
			return nil
		},
	}
	s := newTestBookingService(bookings, &mockReservationRepo{}, &mockResourceRepo{})

	err := s.CancelBooking(context.Background(), testBookingID)

	assert.NoError(t, err)
}

func TestCancelBooking_NotFound(t *testing.T) {
	s := newTestBookingService(&mockBookingRepo{}, &mockReservationRepo{}, &mockResourceRepo{})

	err := s.CancelBooking(context.Background(), testBookingID)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestDeleteBooking(t *testing.T) {
	existing := activeBooking(day(10), day(14))
	deleted := false
	bookings := &mockBookingRepo{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	s := newTestBookingService(bookings, &mockReservationRepo{}, &mockResourceRepo{})

	err := s.DeleteBooking(context.Background(), testBookingID)

	require.NoError(t, err)
	assert.True(t, deleted)
}
