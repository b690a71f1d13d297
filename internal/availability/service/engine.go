package service

import (
	"context"
	"errors"
	"sync"
	"time"

	availerrors "lodgeworks/internal/availability/errors"
	"lodgeworks/internal/availability/repository"
	"lodgeworks/internal/availability/validator"
	"lodgeworks/pkg/config"
	apperrors "lodgeworks/pkg/errors"
	"lodgeworks/pkg/interval"
	"lodgeworks/pkg/model"
	"lodgeworks/pkg/retry"
)

// Conflict reasons surfaced on unavailable answers.
const (
	ReasonBookingConflict     = "dates conflict with an existing booking"
	ReasonReservationConflict = "dates are temporarily held by another guest"
	ReasonBothConflict        = "dates conflict with an existing booking and a pending hold"
)

// AvailabilityService answers the four query shapes over one resource
// inventory. All reads honor half-open date windows: a checkout day is free
// for a new check-in.
type AvailabilityService interface {
	CheckAvailability(ctx context.Context, query *model.AvailabilityQuery) (*model.AvailabilityResult, error)
	CheckBulkAvailability(ctx context.Context, resourceIDs []string, checkIn, checkOut time.Time, includePending bool) (map[string]*model.AvailabilityResult, error)
	GetCalendarAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time) ([]model.CalendarDay, error)
	GetDateRangeAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time, minStayDays int) (*model.DateRangeAvailability, error)
}

type engine struct {
	bookings     repository.BookingRepository
	reservations repository.ReservationRepository
	resources    repository.ResourceRepository
	retry        *retry.Retryer
	validator    *validator.QueryValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewEngine(
	bookings repository.BookingRepository,
	reservations repository.ReservationRepository,
	resources repository.ResourceRepository,
	retryer *retry.Retryer,
	queryValidator *validator.QueryValidator,
	cfg *config.Config,
) AvailabilityService {
	return &engine{
		bookings:     bookings,
		reservations: reservations,
		resources:    resources,
		retry:        retryer,
		validator:    queryValidator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (e *engine) CheckAvailability(ctx context.Context, query *model.AvailabilityQuery) (*model.AvailabilityResult, error) {
	if query == nil {
		return nil, apperrors.InvalidInput("Availability query cannot be empty")
	}
	if err := e.validator.ValidateQuery(query); err != nil {
		return nil, apperrors.Validation("Invalid availability query", map[string]any{"error": err.Error()})
	}

	checkIn := interval.NormalizeDate(query.CheckIn)
	checkOut := interval.NormalizeDate(query.CheckOut)

	if err := e.ensureResourceExists(ctx, query.ResourceID); err != nil {
		return nil, err
	}

	conflictingBookings, conflictingReservations, err := e.findConflicts(
		ctx, query.ResourceID, checkIn, checkOut,
		query.ExcludeBookingID, query.ExcludeReservationID, query.IncludePending,
	)
	if err != nil {
		return nil, err
	}

	result := &model.AvailabilityResult{
		IsAvailable:             len(conflictingBookings) == 0 && len(conflictingReservations) == 0,
		ConflictingBookings:     conflictingBookings,
		ConflictingReservations: conflictingReservations,
	}
	if result.IsAvailable {
		return result, nil
	}

	result.Reason = conflictReason(conflictingBookings, conflictingReservations)
	nights := interval.DaysBetween(checkIn, checkOut)
	next, err := e.findNextAvailablePeriod(ctx, query.ResourceID, checkIn, nights)
	if err != nil {
		// The next-open-period hint is best effort; the conflict answer
		// stands on its own.
		e.cfg.Log.Warn("Failed to compute next available period",
			"resource_id", query.ResourceID,
			"error", err,
		)
	} else {
		result.NextAvailablePeriod = next
	}

	e.cfg.Log.Debug("Availability check completed",
		"resource_id", query.ResourceID,
		"check_in", checkIn,
		"check_out", checkOut,
		"available", result.IsAvailable,
		"booking_conflicts", len(conflictingBookings),
		"reservation_conflicts", len(conflictingReservations),
	)
	return result, nil
}

// CheckBulkAvailability fans out one independent check per resource. Each
// resource's read stands alone; no cross-resource snapshot is implied.
func (e *engine) CheckBulkAvailability(
	ctx context.Context,
	resourceIDs []string,
	checkIn, checkOut time.Time,
	includePending bool,
) (map[string]*model.AvailabilityResult, error) {
	if len(resourceIDs) == 0 {
		return nil, apperrors.InvalidInput("At least one resource ID is required")
	}
	if err := e.validator.ValidateWindow(checkIn, checkOut); err != nil {
		return nil, apperrors.Validation("Invalid availability window", map[string]any{"error": err.Error()})
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make(map[string]*model.AvailabilityResult, len(resourceIDs))
		firstErr error
	)

	for _, resourceID := range resourceIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			result, err := e.CheckAvailability(ctx, &model.AvailabilityQuery{
				ResourceID:     id,
				CheckIn:        checkIn,
				CheckOut:       checkOut,
				IncludePending: includePending,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[id] = result
		}(resourceID)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (e *engine) GetCalendarAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time) ([]model.CalendarDay, error) {
	if err := e.validator.ValidateWindow(startDate, endDate); err != nil {
		return nil, apperrors.Validation("Invalid calendar window", map[string]any{"error": err.Error()})
	}
	if err := e.ensureResourceExists(ctx, resourceID); err != nil {
		return nil, err
	}

	start := interval.NormalizeDate(startDate)
	end := interval.NormalizeDate(endDate)

	bookings, reservations, err := e.findConflicts(ctx, resourceID, start, end, "", "", true)
	if err != nil {
		return nil, err
	}

	return buildCalendar(start, end, bookings, reservations), nil
}

func (e *engine) GetDateRangeAvailability(
	ctx context.Context,
	resourceID string,
	startDate, endDate time.Time,
	minStayDays int,
) (*model.DateRangeAvailability, error) {
	days, err := e.GetCalendarAvailability(ctx, resourceID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return summarizeCalendar(days, minStayDays), nil
}

// --- Shared primitives ---

func (e *engine) ensureResourceExists(ctx context.Context, resourceID string) error {
	var exists bool
	err := e.retry.Do(ctx, "resources.exists", func(ctx context.Context) error {
		var innerErr error
		exists, innerErr = e.resources.Exists(ctx, resourceID)
		return innerErr
	})
	if err != nil {
		if errors.Is(err, availerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid resource ID format")
		}
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Failed to check resource existence", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("Resource", resourceID)
	}
	return nil
}

// findConflicts fetches the bookings and, when requested, the still-blocking
// holds that intersect [checkIn, checkOut), honoring the exclusion ids.
func (e *engine) findConflicts(
	ctx context.Context,
	resourceID string,
	checkIn, checkOut time.Time,
	excludeBookingID, excludeReservationID string,
	includePending bool,
) ([]*model.Booking, []*model.Reservation, error) {
	now := e.now()

	var bookings []*model.Booking
	err := e.retry.Do(ctx, "bookings.find_overlapping", func(ctx context.Context) error {
		var innerErr error
		bookings, innerErr = e.bookings.FindOverlapping(ctx, resourceID, checkIn, checkOut, excludeBookingID)
		return innerErr
	})
	if err != nil {
		return nil, nil, e.storeError("Failed to load overlapping bookings", err)
	}

	var reservations []*model.Reservation
	if includePending {
		err = e.retry.Do(ctx, "reservations.find_overlapping", func(ctx context.Context) error {
			var innerErr error
			reservations, innerErr = e.reservations.FindOverlapping(ctx, resourceID, checkIn, checkOut, now, excludeReservationID)
			return innerErr
		})
		if err != nil {
			return nil, nil, e.storeError("Failed to load overlapping reservations", err)
		}

		// Lazy expiry guard in case the store filter and the clock disagree.
		blocking := reservations[:0]
		for _, r := range reservations {
			if r.Blocks(now) {
				blocking = append(blocking, r)
			}
		}
		reservations = blocking
	}

	return bookings, reservations, nil
}

func (e *engine) storeError(message string, err error) error {
	if errors.Is(err, availerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}

// findNextAvailablePeriod scans forward from the requested check-in for the
// first run of the requested length, bounded by the configured horizon.
func (e *engine) findNextAvailablePeriod(ctx context.Context, resourceID string, from time.Time, nights int) (*model.DatePeriod, error) {
	if nights <= 0 {
		nights = 1
	}
	horizon := from.AddDate(0, 0, e.cfg.SearchHorizonDays)

	bookings, reservations, err := e.findConflicts(ctx, resourceID, from, horizon, "", "", true)
	if err != nil {
		return nil, err
	}

	days := buildCalendar(from, horizon, bookings, reservations)
	run := 0
	for i, day := range days {
		if !day.IsAvailable {
			run = 0
			continue
		}
		run++
		if run == nights {
			start := days[i-nights+1].Date
			return &model.DatePeriod{Start: start, End: start.AddDate(0, 0, nights)}, nil
		}
	}
	return nil, nil
}

func conflictReason(bookings []*model.Booking, reservations []*model.Reservation) string {
	switch {
	case len(bookings) > 0 && len(reservations) > 0:
		return ReasonBothConflict
	case len(bookings) > 0:
		return ReasonBookingConflict
	default:
		return ReasonReservationConflict
	}
}

// buildCalendar marks every date of [start, end). A date covered by a
// booking or blocking hold is unavailable; its checkout date is not covered
// under half-open windows, so turnover days stay open and carry
// HasCheckOut.
func buildCalendar(start, end time.Time, bookings []*model.Booking, reservations []*model.Reservation) []model.CalendarDay {
	days := make([]model.CalendarDay, 0, interval.DaysBetween(start, end))

	for date := start; date.Before(end); date = date.AddDate(0, 0, 1) {
		day := model.CalendarDay{Date: date, IsAvailable: true}

		for _, b := range bookings {
			if date.Equal(b.CheckIn) {
				day.HasCheckIn = true
			}
			if date.Equal(b.CheckOut) {
				day.HasCheckOut = true
			}
			if interval.Contains(b.CheckIn, b.CheckOut, date) {
				day.IsAvailable = false
				day.BookingID = b.ID
			}
		}
		for _, r := range reservations {
			if date.Equal(r.CheckIn) {
				day.HasCheckIn = true
			}
			if date.Equal(r.CheckOut) {
				day.HasCheckOut = true
			}
			if interval.Contains(r.CheckIn, r.CheckOut, date) {
				day.IsAvailable = false
				day.ReservationID = r.ID
			}
		}

		days = append(days, day)
	}
	return days
}

// summarizeCalendar folds a calendar into maximal available runs plus
// occupancy accounting.
func summarizeCalendar(days []model.CalendarDay, minStayDays int) *model.DateRangeAvailability {
	summary := &model.DateRangeAvailability{
		Periods:   []model.AvailablePeriod{},
		TotalDays: len(days),
	}

	var runStart *time.Time
	runLen := 0
	flush := func() {
		if runStart == nil {
			return
		}
		period := model.AvailablePeriod{
			Start:      *runStart,
			End:        runStart.AddDate(0, 0, runLen),
			Nights:     runLen,
			MinStayMet: minStayDays <= 0 || runLen >= minStayDays,
		}
		summary.Periods = append(summary.Periods, period)
		runStart = nil
		runLen = 0
	}

	for i := range days {
		day := days[i]
		if !day.IsAvailable {
			flush()
			continue
		}
		summary.AvailableDays++
		if runStart == nil {
			start := day.Date
			runStart = &start
		}
		runLen++
	}
	flush()

	if summary.TotalDays > 0 {
		summary.OccupancyRate = float64(summary.TotalDays-summary.AvailableDays) / float64(summary.TotalDays)
	}
	return summary
}
