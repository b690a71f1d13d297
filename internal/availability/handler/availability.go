package handler

import (
	"encoding/json"
	"net/http"

	"lodgeworks/internal/availability/service"
	"lodgeworks/internal/availability/sweeper"
	httputil "lodgeworks/pkg/http"
	"lodgeworks/pkg/logger"
	"lodgeworks/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// AvailabilityHandler exposes the query engine and the hold and booking
// write paths. Reads go through the cached service; writes go straight to
// their services, which invalidate the cache themselves.
type AvailabilityHandler struct {
	availability service.AvailabilityService
	holds        service.ReservationService
	bookings     service.BookingService
	sweeper      *sweeper.Sweeper
	log          *logger.Logger
}

func NewAvailabilityHandler(
	availability service.AvailabilityService,
	holds service.ReservationService,
	bookings service.BookingService,
	holdSweeper *sweeper.Sweeper,
	log *logger.Logger,
) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		holds:        holds,
		bookings:     bookings,
		sweeper:      holdSweeper,
		log:          log,
	}
}

func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	checkIn, err := httputil.ExtractDate(r, "check_in")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	checkOut, err := httputil.ExtractDate(r, "check_out")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.availability.CheckAvailability(r.Context(), &model.AvailabilityQuery{
		ResourceID:     ps.ByName("id"),
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		IncludePending: httputil.ExtractBool(r, "include_pending", true),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *AvailabilityHandler) CheckBulk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resourceIDs, err := httputil.ExtractIDList(r, "resource_ids")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	checkIn, err := httputil.ExtractDate(r, "check_in")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	checkOut, err := httputil.ExtractDate(r, "check_out")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.availability.CheckBulkAvailability(r.Context(),
		resourceIDs, checkIn, checkOut, httputil.ExtractBool(r, "include_pending", true))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, results)
}

func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	end, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	days, err := h.availability.GetCalendarAvailability(r.Context(), ps.ByName("id"), start, end)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, days)
}

func (h *AvailabilityHandler) DateRange(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	end, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	minStay, err := httputil.ExtractInt(r, "min_stay", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.availability.GetDateRangeAvailability(r.Context(), ps.ByName("id"), start, end, minStay)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, summary)
}

func (h *AvailabilityHandler) CreateHold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.HoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, hold)
}

func (h *AvailabilityHandler) GetHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hold, err := h.holds.GetHold(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, hold)
}

func (h *AvailabilityHandler) CancelHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := r.Header.Get("X-User-ID")
	isAdmin := r.Header.Get("X-User-Role") == "admin"

	if err := h.holds.CancelHold(r.Context(), ps.ByName("id"), userID, isAdmin); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, booking)
}

func (h *AvailabilityHandler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.bookings.GetBooking(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, booking)
}

func (h *AvailabilityHandler) CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.bookings.CancelBooking(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) DeleteBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.bookings.DeleteBooking(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) TriggerSweep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	touched, err := h.sweeper.SweepNow(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]any{
		"resources_touched": len(touched),
		"resource_ids":      touched,
	})
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/resources/id/:id/availability", h.Check)
	router.GET("/api/v1/resources/id/:id/availability/calendar", h.Calendar)
	router.GET("/api/v1/resources/id/:id/availability/range", h.DateRange)
	router.GET("/api/v1/availability/bulk", h.CheckBulk)

	router.POST("/api/v1/holds", h.CreateHold)
	router.GET("/api/v1/holds/id/:id", h.GetHold)
	router.DELETE("/api/v1/holds/id/:id", h.CancelHold)

	router.POST("/api/v1/bookings", h.CreateBooking)
	router.GET("/api/v1/bookings/id/:id", h.GetBooking)
	router.DELETE("/api/v1/bookings/id/:id", h.CancelBooking)
	router.DELETE("/api/v1/bookings/id/:id/purge", h.DeleteBooking)

	router.POST("/api/v1/holds/sweep", h.TriggerSweep)
}
