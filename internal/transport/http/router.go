package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/metrics"
)

// NewRouter mounts the REST API, the websocket channel, health and metrics endpoints.
func NewRouter(api *API, ws *WSHandler, authSvc *auth.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)
		r.Route("/api", func(r chi.Router) {
			r.Get("/quizzes/{quizID}/attempt", api.RenderAttempt)
			r.Post("/quizzes/{quizID}/attempt", api.SubmitAttempt)
			r.Get("/quizzes/{quizID}/results", api.Results)
			r.Get("/me/scores", api.History)
		})
		r.Get("/ws/quizzes/{quizID}", ws.ServeWS)
	})
	return r
}
