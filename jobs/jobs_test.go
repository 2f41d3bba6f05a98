package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/debt"
	jobmetrics "github.com/truckops/truckops/internal/jobs"
)

type fakeRecalculator struct {
	staffIDs []int64
	err      error
}

func (f *fakeRecalculator) RecalculateStaffWages(_ context.Context, staffID int64) (int, error) {
	f.staffIDs = append(f.staffIDs, staffID)
	return 3, f.err
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) RefreshSummary(context.Context) (debt.Summary, error) {
	f.calls++
	return debt.Summary{
		Customers: []debt.CustomerSummary{{CustomerID: 1}},
		Remaining: decimal.NewFromInt(5_000_000),
	}, nil
}

type fakeCleaner struct{ olderThan time.Duration }

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 4, nil
}

func newMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestWageRecalculateTaskRoundTrip(t *testing.T) {
	task, err := NewWageRecalculateTask(12)
	require.NoError(t, err)
	require.Equal(t, TaskWageRecalculate, task.Type())

	var payload WageRecalculatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(12), payload.StaffID)

	svc := &fakeRecalculator{}
	job := NewWageRecalculateJob(svc, nil, newMetrics())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{12}, svc.staffIDs)
}

func TestWageRecalculateRejectsBadPayload(t *testing.T) {
	job := NewWageRecalculateJob(&fakeRecalculator{}, nil, newMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskWageRecalculate, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskWageRecalculate, []byte(`{"staff_id":0}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWageRecalculatePropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	job := NewWageRecalculateJob(&fakeRecalculator{err: boom}, nil, newMetrics())
	task, err := NewWageRecalculateTask(3)
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestDebtSummaryRefreshJob(t *testing.T) {
	svc := &fakeRefresher{}
	job := NewDebtSummaryRefreshJob(svc, nil, newMetrics())
	job.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, job.Handle(context.Background(), NewDebtSummaryRefreshTask()))
	require.Equal(t, 1, svc.calls)
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	store := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(store, nil, newMetrics())
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, 72*time.Hour, store.olderThan)

	task, err := NewIdempotencyCleanupTask(6)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 6*time.Hour, store.olderThan)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) EnqueueDebtSummaryRefresh(context.Context) error {
	s.calls++
	return s.err
}

func serveJobs(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(method, path, nil))
	return res
}

func TestHealthWithoutInspector(t *testing.T) {
	res := serveJobs(NewHandler(nil, nil, nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, res.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Zero(t, body.Pending)
	require.Contains(t, body.Tasks, TaskDebtSummaryRefresh)
}

func TestHealthReportsQueueCounts(t *testing.T) {
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1, Failed: 2}}
	res := serveJobs(NewHandler(inspector, nil, nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, res.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, 3, body.Pending)
	require.Equal(t, 1, body.Retry)
	require.Equal(t, 2, body.Failed)

	res = serveJobs(NewHandler(stubInspector{err: errors.New("redis down")}, nil, nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestRefreshDebtSummaryTrigger(t *testing.T) {
	refresher := &stubRefresher{}
	res := serveJobs(NewHandler(nil, refresher, nil), http.MethodPost, "/debt-summary/refresh")
	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, 1, refresher.calls)

	res = serveJobs(NewHandler(nil, &stubRefresher{err: errors.New("queue full")}, nil), http.MethodPost, "/debt-summary/refresh")
	require.Equal(t, http.StatusServiceUnavailable, res.Code)

	res = serveJobs(NewHandler(nil, nil, nil), http.MethodPost, "/debt-summary/refresh")
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}
