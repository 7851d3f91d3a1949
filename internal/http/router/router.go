package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/devfolio/devfolio-server/internal/http/handler"
	"github.com/devfolio/devfolio-server/internal/http/middleware"
	"github.com/devfolio/devfolio-server/internal/http/response"
	"github.com/devfolio/devfolio-server/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	SearchHandler    *handler.SearchHandler
	JWTManager       *security.JWTManager
	AuthRateLimitRPM int
	APIRateLimitRPM  int
	EnableOTelHTTP   bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter("api", dep.APIRateLimitRPM, time.Minute).
		WithKeyFunc(middleware.SubjectOrIPKeyFunc(dep.JWTManager)).
		Middleware())

	authLimiter := middleware.NewRateLimiter("auth", dep.AuthRateLimitRPM, time.Minute).Middleware()
	requireAuth := middleware.RequireAuth(dep.JWTManager)
	optionalAuth := middleware.OptionalAuth(dep.JWTManager)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/signup", dep.AuthHandler.Signup)
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			r.With(requireAuth).Post("/logout", dep.AuthHandler.Logout)
			r.With(authLimiter).Get("/google/login", dep.AuthHandler.GoogleLogin)
			r.With(authLimiter).Get("/google/callback", dep.AuthHandler.GoogleCallback)
		})

		r.With(requireAuth).Get("/me", dep.AuthHandler.Me)

		r.Route("/community", func(r chi.Router) {
			r.With(optionalAuth).Get("/search", dep.SearchHandler.CommunitySearch)
			r.With(optionalAuth).Get("/{id}", dep.SearchHandler.CommunityDetail)
			r.With(requireAuth).Post("/{id}/like", dep.SearchHandler.LikeCommunityPost)
		})
		r.Route("/portfolio", func(r chi.Router) {
			r.With(optionalAuth).Get("/search", dep.SearchHandler.PortfolioSearch)
			r.With(optionalAuth).Get("/{id}", dep.SearchHandler.PortfolioDetail)
			r.With(requireAuth).Post("/{id}/like", dep.SearchHandler.LikePortfolio)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
