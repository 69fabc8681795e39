package api

import (
	"database/sql"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/unseen-britain/internal/api/handlers"
	"github.com/isdelr/unseen-britain/internal/auth"
	"github.com/isdelr/unseen-britain/internal/config"
	"github.com/isdelr/unseen-britain/internal/services"
	"github.com/isdelr/unseen-britain/internal/upload"
	"github.com/isdelr/unseen-britain/internal/web"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	sessions *auth.SessionManager,
	render *web.Renderer,
	uploads *upload.Uploader,
	userService services.UserServiceProvider,
	placeService services.PlaceServiceProvider,
	eventService services.EventServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(sessions.LoadSession)

	// Initialize handlers
	pageHandler := handlers.NewPageHandler(render, db)
	userHandler := handlers.NewUserHandler(userService, sessions, render)
	placeHandler := handlers.NewPlaceHandler(placeService, eventService, uploads, render)
	authLimiter := newIPRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	r.Get("/", pageHandler.Home)
	r.Get("/hello/{name}", pageHandler.Hello)
	r.Get("/goodbye", pageHandler.Goodbye)
	r.Get("/healthz", pageHandler.Health)
	r.Handle(upload.URLPrefix+"*", http.StripPrefix(strings.TrimSuffix(upload.URLPrefix, "/"),
		http.FileServer(filesOnly{http.Dir(uploads.Dir)})))

	r.Get("/login", userHandler.LoginPage)
	r.With(authLimiter.Middleware).Post("/authenticate", userHandler.Authenticate)
	r.Get("/registration", userHandler.RegistrationPage)
	r.With(authLimiter.Middleware).Post("/registration", userHandler.Register)
	r.Get("/logout", userHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Get("/dashboard", placeHandler.Dashboard)
		r.Route("/place", func(r chi.Router) {
			r.Get("/create", placeHandler.CreatePage)
			r.Post("/create", placeHandler.Create)
			r.Get("/details/edit/{id}", placeHandler.EditDetailsPage)
			r.Post("/details/edit/{id}", placeHandler.EditDetails)
			r.Post("/delete/{id}", placeHandler.Delete)
			r.Get("/{id}", placeHandler.Detail)
		})
		r.Get("/account/password", userHandler.ChangePasswordPage)
		r.Post("/account/password", userHandler.ChangePassword)
	})

	return r
}

// filesOnly hides directories so the upload folder cannot be listed.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
