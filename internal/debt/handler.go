package debt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

const idempotencyModule = "debt.payment"

// IdempotencyGuard claims client supplied keys for retried writes.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

type Handler struct {
	logger  *slog.Logger
	service *Service
	idem    IdempotencyGuard
	files   *FileService
}

// NewHandler builds the debt handler. idem may be nil to disable key checks.
func NewHandler(logger *slog.Logger, service *Service, idem IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, idem: idem}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Post("/summary/refresh", h.refresh)
	r.Get("/export.xlsx", h.export)
	r.Get("/customers/{customerID}", h.customer)
	r.Get("/customers/{customerID}/remaining", h.remaining)
	r.Post("/payments", h.recordPayment)
	r.Delete("/payments/{id}", h.deletePayment)
	if h.files != nil {
		r.Route("/customers/{customerID}/files", h.mountFiles)
	}
}

// WithFiles enables the attachment routes.
func (h *Handler) WithFiles(files *FileService) *Handler {
	h.files = files
	return h
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, "debt summary failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.RefreshSummary(r.Context())
	if err != nil {
		h.fail(w, "refresh debt summary failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportSummary(r.Context(), &buf); err != nil {
		h.fail(w, "export debt summary failed", err)
		return
	}
	name := fmt.Sprintf("cong-no-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil && h.logger != nil {
		h.logger.Error("write debt workbook failed", slog.Any("error", err))
	}
}

func (h *Handler) customer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Customer(r.Context(), id)
	if err != nil {
		h.fail(w, "customer debt failed", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) remaining(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var year *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("year must be a number"))
			return
		}
		year = &y
	}
	amount, err := h.service.RemainingDebt(r.Context(), id, year)
	if err != nil {
		h.fail(w, "remaining debt failed", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"customer_id": id,
		"year":        year,
		"remaining":   amount,
		"formatted":   shared.FormatVND(amount),
	})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in PaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := r.Header.Get(shared.IdempotencyHeader)
	if key != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			h.fail(w, "claim idempotency key failed", err)
			return
		}
	}
	p, err := h.service.RecordPayment(r.Context(), in)
	if err != nil {
		if key != "" && h.idem != nil {
			if derr := h.idem.Delete(r.Context(), key, idempotencyModule); derr != nil && h.logger != nil {
				h.logger.Warn("release idempotency key failed", slog.Any("error", derr))
			}
		}
		h.fail(w, "record payment failed", err, slog.Int64("customer_id", in.CustomerID))
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.fail(w, "delete payment failed", err, slog.Int64("id", id))
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
