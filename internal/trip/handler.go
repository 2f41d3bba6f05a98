package trip

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the back office trip routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/price", h.price)
}

// MountPublicRoutes registers the unauthenticated submission route.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/", h.submit)
}

type priceRequest struct {
	PriceForCustomer decimal.Decimal  `json:"price_for_customer"`
	PriceForStaff    *decimal.Decimal `json:"price_for_staff"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list trips failed", err)
		return
	}
	if items == nil {
		items = []Trip{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": page})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var (
		f   Filter
		err error
	)
	switch mode := Mode(q.Get("mode")); mode {
	case ModeAll, ModePending, ModeNonPending:
		f.Mode = mode
	default:
		return f, shared.Invalid("unknown mode %q", mode)
	}
	if raw := q.Get("status"); raw != "" {
		if f.Status, err = ParseStatus(raw); err != nil {
			return f, err
		}
	}
	for name, dst := range map[string]**int64{
		"driver_id":    &f.DriverID,
		"assistant_id": &f.AssistantID,
		"customer_id":  &f.CustomerID,
		"vehicle_id":   &f.VehicleID,
	} {
		if *dst, err = httpx.OptionalInt64Query(r, name); err != nil {
			return f, err
		}
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		d, perr := time.Parse(time.DateOnly, raw)
		if perr != nil {
			return f, shared.Invalid("%s must be YYYY-MM-DD", name)
		}
		*dst = &d
	}
	if f.Page, err = httpx.IntQuery(r, "page", 1); err != nil {
		return f, err
	}
	if f.PerPage, err = httpx.IntQuery(r, "per_page", shared.DefaultPerPage); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get trip failed", err, slog.Int64("trip_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	h.createFrom(w, r, SourceInternal)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.createFrom(w, r, SourcePublic)
}

func (h *Handler) createFrom(w http.ResponseWriter, r *http.Request, source Source) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.Source = source
	t, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create trip failed", err, slog.String("source", string(source)))
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var p Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, "update trip failed", err, slog.Int64("trip_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete trip failed", err, slog.Int64("trip_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.fail(w, "approve trip failed", err, slog.Int64("trip_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) price(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req priceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.SetPrice(r.Context(), id, req.PriceForCustomer, req.PriceForStaff)
	if err != nil {
		h.fail(w, "price trip failed", err, slog.Int64("trip_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if !httpx.IsClientError(err) && h.logger != nil {
		h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}
