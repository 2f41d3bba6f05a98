package wage

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

// RecalculationQueue schedules a background wage recalculation.
type RecalculationQueue interface {
	EnqueueWageRecalculation(ctx context.Context, staffID int64) error
}

type Handler struct {
	logger  *slog.Logger
	service *Service
	queue   RecalculationQueue
}

// NewHandler builds the wage handler. A nil queue recalculates inline.
func NewHandler(logger *slog.Logger, service *Service, queue RecalculationQueue) *Handler {
	return &Handler{logger: logger, service: service, queue: queue}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trips/{tripID}", h.tripWages)
	r.Route("/staff/{staffID}", func(r chi.Router) {
		r.Get("/", h.staffWages)
		r.Get("/trips", h.staffTrips)
		r.Get("/summary", h.summary)
		r.Post("/recalculate", h.recalculate)
		r.Get("/adjustments", h.listAdjustments)
		r.Get("/adjustments/{year}/{month}", h.getAdjustment)
		r.Put("/adjustments/{year}/{month}", h.saveAdjustment)
	})
}

type adjustmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (h *Handler) tripWages(w http.ResponseWriter, r *http.Request) {
	tripID, err := httpx.IDParam(r, "tripID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.WagesForTrip(r.Context(), tripID)
	if err != nil {
		h.fail(w, "list trip wages failed", err, slog.Int64("trip_id", tripID))
		return
	}
	if items == nil {
		items = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) staffWages(w http.ResponseWriter, r *http.Request) {
	staffID, err := httpx.IDParam(r, "staffID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.WagesForStaff(r.Context(), staffID)
	if err != nil {
		h.fail(w, "list staff wages failed", err, slog.Int64("staff_id", staffID))
		return
	}
	if items == nil {
		items = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) staffTrips(w http.ResponseWriter, r *http.Request) {
	staffID, err := httpx.IDParam(r, "staffID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.StaffTrips(r.Context(), staffID)
	if err != nil {
		h.fail(w, "list staff trips failed", err, slog.Int64("staff_id", staffID))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	staffID, err := httpx.IDParam(r, "staffID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	months, err := h.service.MonthlySummary(r.Context(), staffID)
	if err != nil {
		h.fail(w, "wage summary failed", err, slog.Int64("staff_id", staffID))
		return
	}
	total, err := h.service.TotalSalary(r.Context(), staffID)
	if err != nil {
		h.fail(w, "wage total failed", err, slog.Int64("staff_id", staffID))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"months":          months,
		"total":           total,
		"total_formatted": shared.FormatVND(total),
	})
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	staffID, err := httpx.IDParam(r, "staffID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.queue != nil {
		if err := h.queue.EnqueueWageRecalculation(r.Context(), staffID); err != nil {
			h.fail(w, "enqueue wage recalculation failed", err, slog.Int64("staff_id", staffID))
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
		return
	}
	n, err := h.service.RecalculateStaffWages(r.Context(), staffID)
	if err != nil {
		h.fail(w, "recalculate wages failed", err, slog.Int64("staff_id", staffID))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "done", "trips": n})
}

func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	staffID, err := httpx.IDParam(r, "staffID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListAdjustments(r.Context(), staffID)
	if err != nil {
		h.fail(w, "list adjustments failed", err, slog.Int64("staff_id", staffID))
		return
	}
	if items == nil {
		items = []Adjustment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) getAdjustment(w http.ResponseWriter, r *http.Request) {
	staffID, year, month, err := adjustmentKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	adj, err := h.service.GetAdjustment(r.Context(), staffID, year, month)
	if err != nil {
		h.fail(w, "get adjustment failed", err, slog.Int64("staff_id", staffID))
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) saveAdjustment(w http.ResponseWriter, r *http.Request) {
	staffID, year, month, err := adjustmentKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	adj, err := h.service.SaveAdjustment(r.Context(), AdjustmentInput{
		StaffID: staffID,
		Year:    year,
		Month:   month,
		Amount:  req.Amount,
		Reason:  req.Reason,
	})
	if err != nil {
		h.fail(w, "save adjustment failed", err, slog.Int64("staff_id", staffID))
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func adjustmentKey(r *http.Request) (int64, int, int, error) {
	staffID, err := httpx.IDParam(r, "staffID")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, 0, 0, shared.Invalid("year must be a number")
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return 0, 0, 0, shared.Invalid("month must be a number")
	}
	return staffID, year, month, nil
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if !httpx.IsClientError(err) && h.logger != nil {
		h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}
