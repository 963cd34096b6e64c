package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"scorehub/internal/leaderboard"
)

// gameExists validates the game and writes the error response itself
// when validation fails.
func (s *Server) gameExists(w http.ResponseWriter, gameID int64) bool {
	exists, err := s.DB.GameExists(gameID)
	if err != nil {
		log.Printf("[DB] GameExists error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to check game")
		return false
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Game not found")
		return false
	}
	return true
}

func (s *Server) handleLeaderboardTop(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	gameID, err := strconv.ParseInt(r.URL.Query().Get("game_id"), 10, 64)
	if err != nil || gameID < 1 {
		writeError(w, http.StatusBadRequest, "game_id must be a positive integer")
		return
	}
	if !s.gameExists(w, gameID) {
		return
	}

	limit, offset := leaderboard.ClampPage(queryInt(r, "limit", 10), queryInt(r, "offset", 0))

	items, totalUsers, err := s.Leaderboard.TopPage(gameID, limit, offset)
	if err != nil {
		log.Printf("[Leaderboard] TopPage error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"game_id":     gameID,
		"items":       items,
		"total_users": totalUsers,
		"limit":       limit,
		"offset":      offset,
	})
}

type userRankResponse struct {
	GameID    int64      `json:"game_id"`
	UserID    int64      `json:"user_id"`
	BestScore *int64     `json:"best_score"`
	BestAt    *time.Time `json:"best_at"`
	Rank      *int       `json:"rank"`
}

func (s *Server) handleLeaderboardUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	userID, err := pathID(r, "userID")
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "user_id must be positive")
		return
	}
	gameID, err := strconv.ParseInt(r.URL.Query().Get("game_id"), 10, 64)
	if err != nil || gameID < 1 {
		writeError(w, http.StatusBadRequest, "game_id must be a positive integer")
		return
	}
	if !s.gameExists(w, gameID) {
		return
	}

	entry, rank, err := s.Leaderboard.UserEntry(gameID, userID)
	if err != nil {
		log.Printf("[Leaderboard] UserEntry error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute rank")
		return
	}

	// A user with no scores is a valid response with null fields, not
	// an error.
	resp := userRankResponse{GameID: gameID, UserID: userID}
	if entry != nil {
		resp.BestScore = &entry.BestScore
		resp.BestAt = &entry.BestAt
		resp.Rank = &rank
	}
	writeJSON(w, http.StatusOK, resp)
}
