package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/swiss-tournament/handlers"
	"github.com/Dosada05/swiss-tournament/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	AllowedOrigins []string
	// JWTSecret пустой - изменяющие маршруты не защищены.
	JWTSecret []byte
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	authHandler *handlers.AuthHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/ws/tournament", webSocketHandler.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Get("/health", tournamentHandler.Health)
		r.Post("/auth/token", authHandler.IssueToken)

		r.Get("/data", tournamentHandler.GetData)
		r.Get("/standings", tournamentHandler.GetStandings)
		r.Get("/rounds/{round}/pending", tournamentHandler.GetPendingMatches)
		r.Get("/export/results", tournamentHandler.ExportResults)
		r.Get("/export/pairings", tournamentHandler.ExportPairings)

		r.Group(func(r chi.Router) {
			if len(opts.JWTSecret) > 0 {
				r.Use(middleware.Authenticate(opts.JWTSecret))
				r.Use(middleware.Authorize(middleware.RoleOrganizer))
			}

			r.Post("/init", tournamentHandler.Init)
			r.Post("/pair", tournamentHandler.PairRound)
			r.Post("/report", tournamentHandler.ReportResult)
			r.Post("/report/batch", tournamentHandler.ReportBatch)
		})
	})
}
