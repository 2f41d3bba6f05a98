package jobs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/truckops/truckops/internal/platform/httpx"
)

// QueueInspector reads queue state. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// SummaryRefresher enqueues a debt summary rebuild.
type SummaryRefresher interface {
	EnqueueDebtSummaryRefresh(ctx context.Context) error
}

// QueueHealth is the body of GET /api/jobs/health.
type QueueHealth struct {
	Queue     string   `json:"queue"`
	Paused    bool     `json:"paused"`
	Pending   int      `json:"pending"`
	Active    int      `json:"active"`
	Scheduled int      `json:"scheduled"`
	Retry     int      `json:"retry"`
	Failed    int      `json:"failed"`
	Tasks     []string `json:"tasks"`
}

// Handler serves queue health and manual job triggers.
type Handler struct {
	inspector QueueInspector
	refresher SummaryRefresher
	logger    *slog.Logger
}

// NewHandler builds the jobs HTTP handler. Either dependency may be nil;
// health then reports an empty queue and the refresh trigger answers 503.
func NewHandler(inspector QueueInspector, refresher SummaryRefresher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, refresher: refresher, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/debt-summary/refresh", h.refreshDebtSummary)
}

// SnapshotQueue converts asynq queue info into a QueueHealth.
func SnapshotQueue(info *asynq.QueueInfo) QueueHealth {
	out := QueueHealth{Queue: QueueDefault, Tasks: registeredTasks()}
	if info == nil {
		return out
	}
	out.Queue = info.Queue
	out.Paused = info.Paused
	out.Pending = info.Pending
	out.Active = info.Active
	out.Scheduled = info.Scheduled
	out.Retry = info.Retry
	out.Failed = info.Failed
	return out
}

func registeredTasks() []string {
	return []string{TaskWageRecalculate, TaskDebtSummaryRefresh, TaskIdempotencyCleanup}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, SnapshotQueue(nil))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "job queue cannot be inspected")
		return
	}
	httpx.JSON(w, http.StatusOK, SnapshotQueue(info))
}

func (h *Handler) refreshDebtSummary(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "job client not configured")
		return
	}
	if err := h.refresher.EnqueueDebtSummaryRefresh(r.Context()); err != nil {
		h.logger.Error("enqueue debt summary refresh", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "debt summary refresh could not be queued")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task": TaskDebtSummaryRefresh})
}
