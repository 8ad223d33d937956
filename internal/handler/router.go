package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printshelf/printshelf/internal/metrics"
	"github.com/printshelf/printshelf/internal/session"
)

// Deps carries everything the router needs.
type Deps struct {
	Auth      *AuthHandler
	Files     *FileHandler
	Groups    *GroupHandler
	Store     session.Store
	JWTSecret string
	StaticDir string // empty disables static serving
	Logger    *slog.Logger
}

// NewRouter assembles the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.Middleware(routePattern))
	r.Use(RequestLogger(d.Logger))

	r.Get("/api/health", Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", d.Auth.Login)
		r.Get("/callback", d.Auth.Callback)
		r.Post("/logout", d.Auth.Logout)
		r.Get("/check", d.Auth.Check)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(d.Store, d.JWTSecret))

		r.Get("/api/files/3mf", d.Files.ListModels)
		r.Get("/api/files/3mf/{name}", d.Files.StreamModel)
		r.Delete("/api/files/3mf/{name}", d.Files.DeleteModel)
		r.Patch("/api/files/3mf/{name}", d.Files.RenameModel)

		r.Get("/api/files/images", d.Files.ListImages)
		r.Get("/api/files/image/*", d.Files.StreamImage)
		r.Delete("/api/files/image/*", d.Files.DeleteImage)

		r.Post("/api/groups", d.Groups.Commit)
	})

	if d.StaticDir != "" {
		r.NotFound(spaHandler(d.StaticDir))
	}

	return r
}

// routePattern reports the matched chi route template so metrics labels
// stay low-cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// spaHandler serves the built frontend, falling back to index.html for
// client-side routes. API paths never fall through here.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}
}
