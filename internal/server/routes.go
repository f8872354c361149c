// Package server exposes the bookmark store over a JSON HTTP API.
//
// Endpoints (all under /api):
//   - GET  /folder-tree, /folder-tree/{folderID} - nested views
//   - POST /move, /move-to-root - reparent folders and bookmarks
//   - POST /import-html, /import-linkwarden; GET /export
//   - POST /create-*, /update-*, /delete-*, /favorite-* - item mutations
//   - GET  /search?q= - fuzzy bookmark search
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// Routes returns the root router with every API endpoint mounted.
func Routes(h *Handler, opts Options, logger *zap.Logger) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 * 1024 * 1024
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware())
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(limitBody(opts.MaxUploadBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/folder-tree", h.FolderTree)
		api.Get("/folder-tree/{folderID}", h.FolderBranch)

		api.Post("/move", h.Move)
		api.Post("/move-to-root", h.MoveToRoot)

		api.Post("/import-html", h.ImportHTML)
		api.Post("/import-linkwarden", h.ImportLinkwarden)
		api.Get("/export", h.Export)

		api.Post("/create-folder", h.CreateFolder)
		api.Post("/create-bookmark", h.CreateBookmark)
		api.Post("/update-folder", h.UpdateFolder)
		api.Post("/update-bookmark", h.UpdateBookmark)
		api.Post("/delete-folder", h.DeleteFolder)
		api.Post("/delete-bookmark", h.DeleteBookmark)
		api.Post("/favorite-folder", h.FavoriteFolder)
		api.Post("/favorite-bookmark", h.FavoriteBookmark)

		api.Get("/search", h.Search)
	})

	return r
}

// NewHTTPServer wraps handler in an http.Server listening on addr.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
