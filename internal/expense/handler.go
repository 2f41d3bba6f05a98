package expense

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/truckops/truckops/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createRequest struct {
	Input
	Deferred bool `json:"deferred"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tripID, err := httpx.OptionalInt64Query(r, "trip_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var items []Expense
	switch staffName := r.URL.Query().Get("staff"); {
	case tripID != nil:
		items, err = h.service.ForTrip(r.Context(), *tripID)
	case staffName != "":
		items, err = h.service.ForStaff(r.Context(), staffName)
	default:
		items, err = h.service.All(r.Context())
	}
	if err != nil {
		h.fail(w, "list expenses failed", err)
		return
	}
	if items == nil {
		items = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.SummaryByStaff(r.Context())
	if err != nil {
		h.fail(w, "summarize expenses failed", err)
		return
	}
	if out == nil {
		out = []StaffSummary{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get expense failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	create := h.service.CreateImmediate
	if req.Deferred {
		create = h.service.CreateDeferred
	}
	item, err := create(r.Context(), req.Input)
	if err != nil {
		h.fail(w, "create expense failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.UpdateAmountAndSettle(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update expense failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete expense failed", err, slog.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if !httpx.IsClientError(err) && h.logger != nil {
		h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}
