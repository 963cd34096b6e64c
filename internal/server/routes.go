package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scorehub/internal/config"
	"scorehub/internal/db"
	"scorehub/internal/leaderboard"
	"scorehub/internal/registry"
)

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	srv := &Server{
		Config:   cfg,
		Registry: registry.New(),
	}

	// Optional database connection; without it the service runs
	// degraded and DB-backed endpoints answer 503.
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Failed to connect: %v (running without database)\n", err)
		} else {
			if err := database.Migrate(); err != nil {
				log.Printf("[DB] Migration failed: %v\n", err)
			}
			srv.DB = database
			srv.Leaderboard = leaderboard.NewQueries(database)
			log.Println("[DB] Database connected and migrations applied")
		}
	} else {
		log.Println("[DB] DATABASE_URL not set, running without database")
	}

	addr := "0.0.0.0:" + cfg.Port
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No read/write deadlines: subscriber connections are long-lived.
	}

	fmt.Printf("Server listening on http://localhost:%s\n", cfg.Port)
	return httpSrv.ListenAndServe()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/auth/mock-login", s.handleMockLogin)
	r.Get("/users/me", s.handleMe)
	r.Get("/games", s.handleListGames)
	r.Get("/games/{gameID}", s.handleGetGame)
	r.Get("/games/{gameID}/scores", s.handleGameScores)
	r.Post("/games/{gameID}/score", s.handleSubmitScore)
	r.Get("/leaderboard/top", s.handleLeaderboardTop)
	r.Get("/leaderboard/user/{userID}", s.handleLeaderboardUser)
	r.Post("/analytics/event", s.handleAnalyticsEvent)
	r.Get("/ws/leaderboard", s.handleSubscribe)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
