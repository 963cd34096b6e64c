package server

import (
	"encoding/json"
	"log"
	"net/http"
)

type analyticsEventRequest struct {
	UserID     *int64          `json:"user_id"`
	GameID     *int64          `json:"game_id"`
	EventName  string          `json:"event_name"`
	Properties json.RawMessage `json:"properties"`
}

func (s *Server) handleAnalyticsEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	var req analyticsEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.EventName) < 1 || len(req.EventName) > 128 {
		writeError(w, http.StatusBadRequest, "event_name must be 1-128 characters")
		return
	}
	if req.UserID != nil && *req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "user_id must be positive when provided")
		return
	}
	if req.GameID != nil {
		if *req.GameID < 1 {
			writeError(w, http.StatusBadRequest, "game_id must be positive when provided")
			return
		}
		exists, err := s.DB.GameExists(*req.GameID)
		if err != nil {
			log.Printf("[DB] GameExists error: %v\n", err)
			writeError(w, http.StatusInternalServerError, "Failed to check game")
			return
		}
		if !exists {
			writeError(w, http.StatusBadRequest, "game_id does not reference an existing game")
			return
		}
	}

	var properties []byte
	if len(req.Properties) > 0 && string(req.Properties) != "null" {
		if !json.Valid(req.Properties) {
			writeError(w, http.StatusBadRequest, "properties must be valid JSON")
			return
		}
		properties = req.Properties
	}

	id, err := s.DB.RecordAnalyticsEvent(req.UserID, req.GameID, req.EventName, properties)
	if err != nil {
		log.Printf("[DB] RecordAnalyticsEvent error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to record event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": "accepted",
		"detail": "Event recorded",
	})
}
