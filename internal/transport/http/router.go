package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	donationhandler "givebridge/internal/donation/handler"
	matchhandler "givebridge/internal/match/handler"
	"givebridge/internal/platform/metrics"
	"givebridge/internal/platform/middleware"
	notificationhandler "givebridge/internal/notification/handler"
	ratinghandler "givebridge/internal/rating/handler"
	"givebridge/internal/transport/http/shared"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router wires together. Handlers stay thin;
// all business rules live behind the services they delegate to.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Resolver      middleware.CallerResolver
	Donations     donationhandler.Service
	Matches       matchhandler.Service
	Ratings       ratinghandler.Service
	Notifications notificationhandler.Service
	// Health checks run on /healthz; a nil map entry is skipped.
	Health map[string]HealthChecker

	RequestTimeout time.Duration
}

// NewRouter builds the full HTTP surface. Everything except health and
// metrics sits behind bearer-token auth.
func NewRouter(deps Deps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(deps.Resolver, deps.Logger))

		donationhandler.New(deps.Donations, deps.Logger).Register(r)
		matchhandler.New(deps.Matches, deps.Logger).Register(r)
		ratinghandler.New(deps.Ratings, deps.Logger).Register(r)
		notificationhandler.New(deps.Notifications, deps.Logger).Register(r)
	})

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		shared.WriteJSON(w, status, body)
	}
}
