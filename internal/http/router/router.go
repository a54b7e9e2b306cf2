package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/poetry-royal/mefil/internal/health"
	"github.com/poetry-royal/mefil/internal/http/handler"
	"github.com/poetry-royal/mefil/internal/http/middleware"
	"github.com/poetry-royal/mefil/internal/http/response"
	"github.com/poetry-royal/mefil/internal/security"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	MefilHandler      *handler.MefilHandler
	ChatHandler       *handler.ChatHandler
	TokenAuthority    *security.TokenAuthority
	CORSOrigins       []string
	APIRateLimitRPM   int
	AuthRateLimitRPM  int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	requireSession := middleware.AuthMiddleware(dep.TokenAuthority)

	r.Route("/api/mefil", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.Get("/session", dep.AuthHandler.Session)
			// Logout clears the cookie whether or not a valid session is
			// presented, so a client stuck with an expired token can always
			// recover.
			r.Post("/logout", dep.AuthHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/state", dep.MefilHandler.State)
			r.Patch("/status", dep.MefilHandler.SetStatus)
			r.Route("/pomodoro", func(r chi.Router) {
				r.Post("/start", dep.MefilHandler.StartTimer)
				r.Post("/pause", dep.MefilHandler.PauseTimer)
				r.Post("/reset", dep.MefilHandler.ResetTimer)
				r.Post("/complete-attack", dep.MefilHandler.CompleteAttack)
			})
			r.Post("/attack", dep.MefilHandler.Attack)
			r.Post("/distracted", dep.MefilHandler.Distracted)
			r.Post("/reset", dep.MefilHandler.ResetQuest)
			r.Get("/events", dep.MefilHandler.Events)

			r.Get("/chat", dep.ChatHandler.List)
			r.Post("/chat", dep.ChatHandler.Post)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
