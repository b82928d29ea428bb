package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/folio-api/internal/api/handlers"
	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/services"
	"github.com/isdelr/folio-api/internal/storage"
	"github.com/isdelr/folio-api/internal/websocket"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth      services.AuthServiceProvider
	Users     services.UserServiceProvider
	Portfolio services.PortfolioServiceProvider
	Events    services.EventServiceProvider
	Verifier  auth.Verifier
	Storage   storage.Storage
	Hub       *websocket.Hub

	// UploadDir, when set, is served read-only under /uploads.
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authHandler := handlers.NewAuthHandler(d.Auth)
	userHandler := handlers.NewUserHandler(d.Users, d.Events, d.Storage, d.MaxUploadBytes)
	portfolioHandler := handlers.NewPortfolioHandler(d.Portfolio)
	healthHandler := handlers.NewHealthHandler()
	requireAuth := auth.RequireAuth(d.Verifier)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", userHandler.Profile)
				r.Put("/update", userHandler.Update)
				r.Post("/uploadProfileImage", userHandler.UploadProfileImage)
				r.Get("/activity", userHandler.Activity)
			})

			r.Route("/portfolio", func(r chi.Router) {
				r.Post("/add", portfolioHandler.Add)
				r.Get("/user/{id}", portfolioHandler.ListByUser)
			})

			if d.Hub != nil {
				wsHandler := handlers.NewWebSocketHandler(d.Hub, d.CORSOrigins)
				r.Get("/ws/activity", wsHandler.Serve)
			}
		})
	})

	if d.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir)))
		r.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			fs.ServeHTTP(w, r)
		})
	}

	return r
}
