package balance

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/platform/httpx"
)

// Handler exposes the ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a balance handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers balance endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{shortName}", h.show)
	r.Get("/{shortName}/entries", h.entries)
	r.Post("/{shortName}/credit", h.movement(h.service.Credit, "credit balance failed"))
	r.Post("/{shortName}/debit", h.movement(h.service.Debit, "debit balance failed"))
	r.Post("/{shortName}/set", h.movement(h.service.Set, "set balance failed"))
}

type movementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
	Date   *time.Time      `json:"date"`
}

type movementFunc func(ctx context.Context, shortName string, amount decimal.Decimal, reason string, date time.Time) (Balance, error)

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.All(r.Context())
	if err != nil {
		h.fail(w, "list balances failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	shortName := shortNameParam(r)
	out, err := h.service.Get(r.Context(), shortName)
	if err != nil {
		h.fail(w, "get balance failed", err, slog.String("staff", shortName))
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	shortName := shortNameParam(r)
	items, err := h.service.Entries(r.Context(), shortName)
	if err != nil {
		h.fail(w, "list balance entries failed", err, slog.String("staff", shortName))
		return
	}
	if items == nil {
		items = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) movement(apply movementFunc, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req movementRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		var date time.Time
		if req.Date != nil {
			date = *req.Date
		}
		shortName := shortNameParam(r)
		out, err := apply(r.Context(), shortName, req.Amount, req.Reason, date)
		if err != nil {
			h.fail(w, msg, err, slog.String("staff", shortName))
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func shortNameParam(r *http.Request) string {
	raw := chi.URLParam(r, "shortName")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if !httpx.IsClientError(err) && h.logger != nil {
		h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}
