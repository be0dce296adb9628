package router

import (
	"net/http"

	"redcode-api/internal/handler"
	"redcode-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	AuthHandler      *handler.AuthHandler
	BotHandler       *handler.BotHandler
	GameDataHandler  *handler.GameDataHandler
	ThumbnailHandler *handler.ThumbnailHandler
	ScriptHandler    *handler.ScriptHandler
	AdminHandler     *handler.AdminHandler

	// RequireUser guards the dashboard routes with a session JWT.
	RequireUser func(http.Handler) http.Handler
	// RequireLoginKey guards the admin routes with X-Login-Key.
	RequireLoginKey func(http.Handler) http.Handler
	// IngestLimit throttles report ingestion.
	IngestLimit func(http.Handler) http.Handler

	StaticDir string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Login-Key", "Roblox-Id", "Roblox-Game"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Static files (dashboard) - public
	if cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/static/index.html", http.StatusFound)
		})
		r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/static/admin.html", http.StatusMovedPermanently)
		})
	}

	r.Route("/api", func(r chi.Router) {
		// PUBLIC routes (no auth required)
		if cfg.Handler != nil {
			r.Get("/status", cfg.Handler.Status)
			r.Route("/v1", func(r chi.Router) {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			})
		}

		if cfg.ScriptHandler != nil {
			r.Get("/script", cfg.ScriptHandler.Get)
		}

		if cfg.AuthHandler != nil {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/verify", cfg.AuthHandler.Verify)
			r.Post("/auth/token", cfg.AuthHandler.RoleToken)
		}

		if cfg.BotHandler != nil {
			r.Get("/stats", cfg.BotHandler.Stats)
		}

		if cfg.ThumbnailHandler != nil {
			r.Get("/thumbnail", cfg.ThumbnailHandler.Get)
		}

		if cfg.GameDataHandler != nil {
			r.Group(func(r chi.Router) {
				if cfg.IngestLimit != nil {
					r.Use(cfg.IngestLimit)
				}
				r.Post("/gamedata", cfg.GameDataHandler.Ingest)
			})
		}

		// AUTHENTICATED routes (use Group to apply auth middleware only to these)
		r.Group(func(r chi.Router) {
			if cfg.RequireUser != nil {
				r.Use(cfg.RequireUser)
			}

			if cfg.AuthHandler != nil {
				r.Route("/user", func(r chi.Router) {
					r.Put("/settings", cfg.AuthHandler.UpdateSettings)
					r.Post("/apikey", cfg.AuthHandler.RegenerateAPIKey)
				})
			}

			if cfg.BotHandler != nil {
				r.Route("/bots", func(r chi.Router) {
					r.Get("/", cfg.BotHandler.List)
					r.Post("/", cfg.BotHandler.Create)
					r.Delete("/{id}", cfg.BotHandler.Delete)
				})
			}
		})

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Group(func(r chi.Router) {
				if cfg.RequireLoginKey != nil {
					r.Use(cfg.RequireLoginKey)
				}
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Post("/sweep", cfg.AdminHandler.Sweep)
				})
			})
		}
	})

	return r
}
