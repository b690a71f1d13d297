package service

import (
	"context"
	"io"
	"time"

	availerrors "lodgeworks/internal/availability/errors"
	"lodgeworks/internal/availability/validator"
	"lodgeworks/pkg/config"
	mongotx "lodgeworks/pkg/db/mongo"
	"lodgeworks/pkg/logger"
	"lodgeworks/pkg/model"
	"lodgeworks/pkg/retry"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockBookingRepo struct {
	InsertFunc          func(ctx context.Context, booking *model.Booking) error
	FindByIDFunc        func(ctx context.Context, id string) (*model.Booking, error)
	FindOverlappingFunc func(ctx context.Context, resourceID string, checkIn, checkOut time.Time, excludeID string) ([]*model.Booking, error)
	UpdateStatusFunc    func(ctx context.Context, id, status string) error
	DeleteFunc          func(ctx context.Context, id string) error
}

func (m *mockBookingRepo) Insert(ctx context.Context, booking *model.Booking) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, booking)
	}
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, availerrors.ErrNotFound
}

func (m *mockBookingRepo) FindOverlapping(ctx context.Context, resourceID string, checkIn, checkOut time.Time, excludeID string) ([]*model.Booking, error) {
	if m.FindOverlappingFunc != nil {
		return m.FindOverlappingFunc(ctx, resourceID, checkIn, checkOut, excludeID)
	}
	return nil, nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockBookingRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(fakeSessionContext{Context: ctx})
}

type mockReservationRepo struct {
	InsertFunc          func(ctx context.Context, reservation *model.Reservation) error
	FindByIDFunc        func(ctx context.Context, id string) (*model.Reservation, error)
	FindOverlappingFunc func(ctx context.Context, resourceID string, checkIn, checkOut, now time.Time, excludeID string) ([]*model.Reservation, error)
	UpdateStatusFunc    func(ctx context.Context, id, status string) error
	ExpireBatchFunc     func(ctx context.Context, now time.Time) ([]string, error)
}

func (m *mockReservationRepo) Insert(ctx context.Context, reservation *model.Reservation) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, reservation)
	}
	return nil
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, availerrors.ErrNotFound
}

func (m *mockReservationRepo) FindOverlapping(ctx context.Context, resourceID string, checkIn, checkOut time.Time, now time.Time, excludeID string) ([]*model.Reservation, error) {
	if m.FindOverlappingFunc != nil {
		return m.FindOverlappingFunc(ctx, resourceID, checkIn, checkOut, now, excludeID)
	}
	return nil, nil
}

func (m *mockReservationRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockReservationRepo) ExpireBatch(ctx context.Context, now time.Time) ([]string, error) {
	if m.ExpireBatchFunc != nil {
		return m.ExpireBatchFunc(ctx, now)
	}
	return nil, nil
}

func (m *mockReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(fakeSessionContext{Context: ctx})
}

type mockResourceRepo struct {
	FindByIDFunc func(ctx context.Context, id string) (*model.Resource, error)
	ExistsFunc   func(ctx context.Context, id string) (bool, error)
}

func (m *mockResourceRepo) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return &model.Resource{ID: id}, nil
}

func (m *mockResourceRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return true, nil
}

// fakeSessionContext lets mock repos run transaction callbacks without a
// real session. Only the context surface is used by the code under test.
type fakeSessionContext struct {
	context.Context
	mongo.SessionContext
}

func (f fakeSessionContext) Deadline() (time.Time, bool)      { return f.Context.Deadline() }
func (f fakeSessionContext) Done() <-chan struct{}            { return f.Context.Done() }
func (f fakeSessionContext) Err() error                       { return f.Context.Err() }
func (f fakeSessionContext) Value(key interface{}) interface{} { return f.Context.Value(key) }

func testConfig() *config.Config {
	return &config.Config{
		Log:               logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard}),
		HoldMinutes:       45,
		SearchHorizonDays: 30,
		SweepInterval:     5 * time.Minute,
	}
}

func testRetryer(cfg *config.Config) *retry.Retryer {
	return retry.New(cfg.Log, retry.Options{
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
		Health:      retry.StaticHealth(true),
	})
}

func newTestEngine(bookings *mockBookingRepo, reservations *mockReservationRepo, resources *mockResourceRepo) (*engine, *config.Config) {
	cfg := testConfig()
	e := &engine{
		bookings:     bookings,
		reservations: reservations,
		resources:    resources,
		retry:        testRetryer(cfg),
		validator:    validator.NewQueryValidator(cfg.Log),
		cfg:          cfg,
		now:          func() time.Time { return fixedNow },
	}
	return e, cfg
}

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

const (
	testResourceID    = "507f1f77bcf86cd799439011"
	testBookingID     = "507f1f77bcf86cd799439012"
	testReservationID = "507f1f77bcf86cd799439013"
	testUserID        = "guest-42"
)
