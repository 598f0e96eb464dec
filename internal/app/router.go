package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tablero/tablero/internal/account"
	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/observability"
	"github.com/tablero/tablero/internal/session"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *session.Manager
	SessionHandler  *session.Handler
	DispatchHandler *dispatch.Handler
	AccountHandler  *account.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Tablero defaults. All
// application routes live at the root to keep the public surface
// identical to the legacy gateway the frontend already talks to.
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

	r.Group(func(r chi.Router) {
		params.SessionHandler.MountRoutes(r)
		params.DispatchHandler.MountRoutes(r)
		params.AccountHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
