package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
	"github.com/couchcryptid/vessel-data-service/internal/service"
)

// VesselService is the subset of service.Service the API serves.
type VesselService interface {
	sharedobs.ReadinessChecker
	FetchLatest(ctx context.Context) (*domain.VesselState, error)
	FetchByDate(ctx context.Context, date string) (*domain.VesselState, error)
	FetchByDateRange(ctx context.Context, start, end string) ([]domain.VesselState, error)
	FetchHistoricalWindow(ctx context.Context, days int) ([]domain.VesselState, error)
	ListAvailableDates(ctx context.Context) ([]string, error)
	GetLatestAvailableDate(ctx context.Context) (string, error)
	IsDateAvailable(date string) bool
	Status() service.Status
}

type apiHandler struct {
	svc    VesselService
	logger *slog.Logger
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type rangeResponse struct {
	Start   string               `json:"start"`
	End     string               `json:"end"`
	States  []domain.VesselState `json:"states"`
	Current *domain.VesselState  `json:"current"`
	Message string               `json:"message,omitempty"`
}

func (h *apiHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/vessel/latest", h.latest)
	mux.HandleFunc("GET /api/v1/vessel/dates", h.dates)
	mux.HandleFunc("GET /api/v1/vessel/dates/latest", h.latestDate)
	mux.HandleFunc("GET /api/v1/vessel/dates/{date}/available", h.dateAvailable)
	mux.HandleFunc("GET /api/v1/vessel/days/{date}", h.byDate)
	mux.HandleFunc("GET /api/v1/vessel/range", h.byRange)
	mux.HandleFunc("GET /api/v1/vessel/history", h.history)
	mux.HandleFunc("GET /api/v1/status", h.status)
}

func (h *apiHandler) latest(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.FetchLatest(r.Context())
	switch {
	case errors.Is(err, domain.ErrNoData):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "No vessel data found"})
	case err != nil:
		h.writeFailure(w, "latest", err)
	default:
		writeJSON(w, http.StatusOK, state)
	}
}

func (h *apiHandler) byDate(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	state, err := h.svc.FetchByDate(r.Context(), date)
	switch {
	case err != nil:
		h.writeFailure(w, "by_date", err)
	case state == nil:
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "No data available for " + date})
	default:
		writeJSON(w, http.StatusOK, state)
	}
}

func (h *apiHandler) byRange(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if !validDate(start) || !validDate(end) {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "start and end must be yyyy-mm-dd dates"})
		return
	}
	if start > end {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "start must not be after end"})
		return
	}

	states, err := h.svc.FetchByDateRange(r.Context(), start, end)
	if err != nil {
		h.writeFailure(w, "by_range", err)
		return
	}
	resp := rangeResponse{Start: start, End: end, States: states}
	if n := len(states); n > 0 {
		resp.Current = &states[n-1]
	} else {
		resp.Message = fmt.Sprintf("No data available between %s and %s", start, end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) history(w http.ResponseWriter, r *http.Request) {
	days := 0
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "days must be a positive integer"})
			return
		}
		days = n
	}
	states, err := h.svc.FetchHistoricalWindow(r.Context(), days)
	switch {
	case errors.Is(err, domain.ErrNoData):
		writeJSON(w, http.StatusOK, map[string]any{"states": states, "message": "No historical data found"})
	case err != nil:
		h.writeFailure(w, "history", err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"states": states})
	}
}

func (h *apiHandler) dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.svc.ListAvailableDates(r.Context())
	if err != nil {
		h.writeFailure(w, "dates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dates": dates})
}

func (h *apiHandler) latestDate(w http.ResponseWriter, r *http.Request) {
	date, err := h.svc.GetLatestAvailableDate(r.Context())
	resp := map[string]any{"date": date}
	switch {
	case errors.Is(err, domain.ErrNoData):
		// The fallback date is still a usable default for the picker.
		resp["fallback"] = true
		resp["message"] = "No vessel data found"
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		h.logger.Warn("api request failed", "route", "latest_date", "error", err)
		resp["fallback"] = true
		resp["message"] = "Vessel data is temporarily unavailable"
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) dateAvailable(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "available": h.svc.IsDateAvailable(date)})
}

func (h *apiHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *apiHandler) writeFailure(w http.ResponseWriter, route string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	h.logger.Warn("api request failed", "route", route, "error", err)
	writeJSON(w, http.StatusServiceUnavailable, messageResponse{
		Message: "Vessel data is temporarily unavailable",
		Error:   h.svc.Status().Error,
	})
}

func pathDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.PathValue("date")
	if !validDate(date) {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "date must be yyyy-mm-dd"})
		return "", false
	}
	return date, true
}

func validDate(s string) bool {
	return !domain.ParseInternalDate(s).Fallback
}
