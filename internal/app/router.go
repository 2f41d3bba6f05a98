package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/truckops/truckops/internal/auth"
	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/observability"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/trip"
	"github.com/truckops/truckops/internal/wage"
	"github.com/truckops/truckops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics

	AuthHandler     *auth.Handler
	TripHandler     *trip.Handler
	BalanceHandler  *balance.Handler
	ExpenseHandler  *expense.Handler
	WageHandler     *wage.Handler
	DebtHandler     *debt.Handler
	StaffHandler    *staff.Handler
	VehicleHandler  *vehicles.Handler
	CustomerHandler *customers.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with TruckOps defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
			Route("/api/auth", params.AuthHandler.MountRoutes)
	}

	// Drivers submit trips from the road without an account.
	if params.TripHandler != nil {
		r.With(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
			Route("/api/public/trips", params.TripHandler.MountPublicRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Use(httprate.Limit(300, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

		if params.TripHandler != nil {
			r.Route("/trips", params.TripHandler.MountRoutes)
		}
		if params.BalanceHandler != nil {
			r.Route("/balances", params.BalanceHandler.MountRoutes)
		}
		if params.ExpenseHandler != nil {
			r.Route("/expenses", params.ExpenseHandler.MountRoutes)
		}
		if params.WageHandler != nil {
			r.Route("/wages", params.WageHandler.MountRoutes)
		}
		if params.DebtHandler != nil {
			r.Route("/debts", params.DebtHandler.MountRoutes)
		}
		r.Route("/masterdata", func(r chi.Router) {
			if params.StaffHandler != nil {
				r.Route("/staff", params.StaffHandler.MountRoutes)
			}
			if params.VehicleHandler != nil {
				r.Route("/vehicles", params.VehicleHandler.MountRoutes)
			}
			if params.CustomerHandler != nil {
				r.Route("/customers", params.CustomerHandler.MountRoutes)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
