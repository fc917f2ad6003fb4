// Package handler exposes the yield assistant's HTTP API: account registry,
// session calculation, the screenshot upload workflow, weekly reports and
// the all-accounts export.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(trk *service.Tracker, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(trk))
	r.Get("/readyz", readyzHandler(trk))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Accounts
		r.Get("/accounts", listAccountsHandler(trk, logger))
		r.Post("/accounts", addAccountHandler(trk, logger))
		r.Put("/accounts/{accountId}", renameAccountHandler(trk, logger))
		r.Delete("/accounts/{accountId}", deleteAccountHandler(trk, logger))
		r.Post("/accounts/{accountId}/activate", activateAccountHandler(trk, logger))

		// Session
		r.Get("/session", getSessionHandler(trk, logger))
		r.Put("/session/{dataType}", updateSnapshotHandler(trk, logger))
		r.Post("/session/calculate", calculateHandler(trk, logger))
		r.Get("/report/weekly", weeklyReportHandler(trk, logger))

		// Upload workflow
		r.Get("/upload", uploadStatusHandler(trk))
		r.Post("/upload/target", uploadTargetHandler(trk, logger))
		r.Post("/upload/file", uploadFileHandler(trk, logger))
		r.Post("/upload/paste", uploadPasteHandler(trk, logger))
		r.Post("/upload/confirm", uploadConfirmHandler(trk, logger))
		r.Post("/upload/cancel", uploadCancelHandler(trk, logger))
		r.Get("/upload/preview", uploadPreviewHandler(trk, logger))

		// Export
		r.Get("/export/csv", exportCSVHandler(trk, logger))
		r.Get("/export/xlsx", exportXLSXHandler(trk, logger))

		// Operational
		r.Get("/metrics/summary", metricsSummaryHandler(trk))
		r.Post("/reload", reloadHandler(trk, logger))
	})

	return r
}

func healthzHandler(trk *service.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if !trk.Ready() {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

// readyzHandler reports 503 until both the registry and the active account's
// state have loaded from the store.
func readyzHandler(trk *service.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !trk.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(trk *service.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, trk.MetricsSummary())
	}
}

func reloadHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reload")
		defer span.End()
		if err := trk.Reload(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
