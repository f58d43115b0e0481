package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/driveos/filecore/internal/logger"
	"github.com/driveos/filecore/pkg/api/handlers"
	"github.com/driveos/filecore/pkg/api/middleware"
	"github.com/driveos/filecore/pkg/catalog"
	"github.com/driveos/filecore/pkg/catalog/store"
)

// Services bundles the catalog services the router exposes.
type Services struct {
	Store    *store.GORMStore
	Catalog  *catalog.FileCatalog
	Versions *catalog.VersionManager
	Shares   *catalog.ShareRegistry
	Access   *catalog.AccessResolver
}

// NewRouter creates and configures the chi router with all middleware
// and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Health routes are unauthenticated; everything under /api/v1 requires
// the caller identity header.
func NewRouter(services Services, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	healthHandler := handlers.NewHealthHandler(services.Store)
	fileHandler := handlers.NewFileHandler(services.Catalog)
	versionHandler := handlers.NewVersionHandler(services.Versions)
	shareHandler := handlers.NewShareHandler(services.Shares)
	accessHandler := handlers.NewAccessHandler(services.Access)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Route("/files", func(r chi.Router) {
			r.Post("/", fileHandler.Create)
			r.Get("/", fileHandler.List)
			r.Get("/search", fileHandler.Search)
			r.Get("/by-path", fileHandler.GetByPath)

			r.Route("/{fileID}", func(r chi.Router) {
				r.Get("/", fileHandler.Get)
				r.Patch("/", fileHandler.Update)
				r.Delete("/", fileHandler.Delete)
				r.Post("/move", fileHandler.Move)
				r.Post("/restore", fileHandler.Restore)

				r.Route("/versions", func(r chi.Router) {
					r.Post("/", versionHandler.Create)
					r.Get("/", versionHandler.List)
					r.Get("/{number}", versionHandler.Get)
					r.Post("/{number}/restore", versionHandler.Restore)
				})

				r.Route("/shares", func(r chi.Router) {
					r.Post("/", shareHandler.Create)
					r.Get("/", shareHandler.ListByFile)
					r.Delete("/", shareHandler.RevokeAll)
					r.Delete("/{userID}", shareHandler.Revoke)
				})

				r.Route("/access", func(r chi.Router) {
					r.Get("/", accessHandler.Context)
					r.Get("/check", accessHandler.Check)
				})
			})
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", fileHandler.ListTrash)
			r.Delete("/", fileHandler.EmptyTrash)
		})

		r.Route("/shares", func(r chi.Router) {
			r.Get("/outgoing", shareHandler.ListMine)
			r.Get("/incoming", shareHandler.ListSharedWithMe)
			r.Delete("/{shareID}", shareHandler.RevokeByID)
		})
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the
// internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
