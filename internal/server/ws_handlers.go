package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"scorehub/internal/wshub"
)

// handleSubscribe upgrades the connection and keeps it registered for
// leaderboard updates until the peer goes away. A malformed game_id
// filter degrades to a global subscription rather than failing the
// connection.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[WS] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	var gameID *int64
	if raw := r.URL.Query().Get("game_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			gameID = &id
		}
	}

	client := wshub.NewClient(conn)
	s.Registry.Register(client, gameID)
	defer s.Registry.Unregister(client, gameID)

	scope := "global"
	if gameID != nil {
		scope = "game " + strconv.FormatInt(*gameID, 10)
	}
	log.Printf("[WS] Subscriber %s connected (%s)\n", client.ID, scope)

	if err := client.Listen(r.Context()); err != nil {
		log.Printf("[WS] Subscriber %s disconnected: %v\n", client.ID, err)
	}
}
