/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the review frontend

ROUTE GROUPS:
  /api/workers/*        Workers, requirements, compliance, personal documents
  /api/documents/*      Review, filtering, bulk operations
  /api/attendance/*     Monthly attendance records
  /api/dashboard/*      Organization-wide summary
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
// origins lists the allowed CORS origins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Worker routes
		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Post("/", h.CreateWorker)
			r.Get("/{id}", h.GetWorker)
			r.Get("/{id}/requirements", h.GetRequirements)
			r.Get("/{id}/compliance", h.GetCompliance)
			r.Get("/{id}/documents", h.ListWorkerDocuments)
			r.Post("/{id}/documents", h.UploadDocument)
		})

		// Document routes
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Get("/summary", h.DocumentSummary)
			r.Post("/bulk/status", h.BulkSetStatus)
			r.Post("/bulk/delete", h.BulkDelete)
			r.Post("/{id}/approve", h.ApproveDocument)
			r.Post("/{id}/reject", h.RejectDocument)
			r.Put("/{id}/status", h.SetDocumentStatus)
			r.Delete("/{id}", h.DeleteDocument)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendance)
			r.Post("/", h.SubmitAttendance)
			r.Delete("/{id}", h.DeleteAttendance)
			r.Post("/{id}/status", h.SetAttendanceStatus)
			r.Put("/{id}/slots/{slot}", h.ReplaceAttendanceSlot)
			r.Delete("/{id}/slots/{slot}", h.DeleteAttendanceSlot)
		})

		r.Get("/dashboard/compliance", h.GetDashboard)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
