package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/app"
	"github.com/truckops/truckops/internal/ledgertest"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/observability"
	"github.com/truckops/truckops/internal/shared"
)

func newRouter(t *testing.T) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "truckops_session", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sys := ledgertest.NewSystem(ledgertest.Options{})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         &app.Config{AppEnv: "test", CORSAllowedOrigins: []string{"http://localhost:5173"}},
		SessionManager: sessions,
		Metrics:        observability.NewMetrics(),
		VehicleHandler: vehicles.NewHandler(logger, sys.Vehicles),
	})
	return router, sessions
}

func signedIn(t *testing.T, sessions *shared.SessionManager, userID string) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	sess, err := sessions.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser(userID)
	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Commit(ctx, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestHealthzCarriesSecurityHeaders(t *testing.T) {
	router, _ := newRouter(t)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"status":"ok"}`, res.Body.String())
	require.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
}

func TestAPIRequiresSession(t *testing.T) {
	router, sessions := newRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/masterdata/vehicles/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/masterdata/vehicles/", nil)
	req.AddCookie(signedIn(t, sessions, "7"))
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Contains(t, res.Body.String(), `"total":0`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "truckops_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/debts/payments", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", shared.IdempotencyHeader)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, "http://localhost:5173", res.Header().Get("Access-Control-Allow-Origin"))
}
