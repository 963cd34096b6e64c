package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"scorehub/internal/auth"
	"scorehub/internal/config"
	"scorehub/internal/db"
	"scorehub/internal/leaderboard"
	"scorehub/internal/registry"
)

var scoresSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "scorehub_scores_submitted_total",
	Help: "Score submissions accepted.",
})

type Server struct {
	Config      config.Config
	DB          *db.DB               // nil if no database configured
	Leaderboard *leaderboard.Queries // nil if no database configured
	Registry    *registry.Registry
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Encode error: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// requireDB answers 503 and returns false when no database is
// configured.
func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "Database is not initialized. Check DATABASE_URL configuration or startup logs.")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	if err := s.DB.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("Database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "connected",
		"detail":   "Service healthy",
	})
}

// handleStatus reports liveness without touching the database.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	dbState := "unavailable"
	if s.DB != nil {
		dbState = "initialized"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"database":    dbState,
		"subscribers": s.Registry.Subscribers(),
	})
}

type mockLoginRequest struct {
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Locale    *string `json:"locale"`
}

func (s *Server) handleMockLogin(w http.ResponseWriter, r *http.Request) {
	log.Println("[Handle:MockLogin] Request Received")
	if !s.requireDB(w) {
		return
	}

	var req mockLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "email must be a valid address")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	userID, err := s.DB.UpsertUser(req.Email, req.Name, req.AvatarURL, req.Locale)
	if err != nil {
		log.Printf("[DB] UpsertUser error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	token, err := auth.Issue(s.Config.TokenSecret, s.Config.TokenTTL, userID, req.Email, req.Name)
	if err != nil {
		log.Printf("[Auth] Issue error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		writeError(w, http.StatusUnauthorized, "Authorization header missing")
		return
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		writeError(w, http.StatusUnauthorized, "Invalid Authorization header")
		return
	}

	claims, err := auth.Verify(s.Config.TokenSecret, parts[1])
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token subject")
		return
	}

	user, err := s.DB.GetUser(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[DB] GetUser error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	size, _ := leaderboard.ClampPage(queryInt(r, "size", 10), 0)

	games, total, err := s.DB.ListGames(page, size)
	if err != nil {
		log.Printf("[DB] ListGames error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to list games")
		return
	}
	if games == nil {
		games = []db.Game{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": games,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// getGame loads a game and writes the error response itself when the
// game cannot be returned.
func (s *Server) getGame(w http.ResponseWriter, gameID int64) *db.Game {
	game, err := s.DB.GetGame(gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Game not found")
		} else {
			log.Printf("[DB] GetGame error: %v\n", err)
			writeError(w, http.StatusInternalServerError, "Failed to load game")
		}
		return nil
	}
	return game
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}
	game := s.getGame(w, gameID)
	if game == nil {
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleGameScores(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "recent"
	}
	if mode != "recent" && mode != "top" {
		writeError(w, http.StatusBadRequest, "mode must be 'recent' or 'top'")
		return
	}
	limit, _ := leaderboard.ClampPage(queryInt(r, "limit", 10), 0)

	game := s.getGame(w, gameID)
	if game == nil {
		return
	}

	var scores []db.ScoreEvent
	if mode == "recent" {
		scores, err = s.DB.RecentScores(gameID, limit)
	} else {
		scores, err = s.DB.TopScores(gameID, limit)
	}
	if err != nil {
		log.Printf("[DB] %s scores error: %v\n", mode, err)
		writeError(w, http.StatusInternalServerError, "Failed to load scores")
		return
	}
	if scores == nil {
		scores = []db.ScoreEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"game":  game,
		"items": scores,
		"mode":  mode,
		"limit": limit,
	})
}

type submitScoreRequest struct {
	UserID int64 `json:"user_id"`
	Score  int64 `json:"score"`
}

// handleSubmitScore is the orchestration hook for score submission:
// append the event, recompute summary stats, then fan the update out to
// subscribers.
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	log.Println("[Handle:SubmitScore] Request Received")
	if !s.requireDB(w) {
		return
	}

	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "user_id must be positive")
		return
	}
	if req.Score < 0 {
		writeError(w, http.StatusBadRequest, "score must be non-negative")
		return
	}

	game := s.getGame(w, gameID)
	if game == nil {
		return
	}

	inserted, err := s.DB.InsertScore(gameID, req.UserID, req.Score)
	if err != nil {
		log.Printf("[DB] InsertScore error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to record score")
		return
	}
	scoresSubmittedTotal.Inc()

	stats, err := s.DB.GameScoreStats(gameID)
	if err != nil {
		log.Printf("[DB] GameScoreStats error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	s.Registry.Broadcast(r.Context(), gameID, map[string]any{
		"inserted": inserted,
		"stats":    stats,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"game":     game,
		"inserted": inserted,
		"stats":    stats,
	})
}
