// Package registry tracks live leaderboard subscribers and fans out
// update messages. It is in-memory and single-process: every mutation
// and snapshot goes through one mutex, and sends never happen while the
// mutex is held.
package registry

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scorehub_subscribers",
		Help: "Currently registered leaderboard subscribers.",
	})
	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scorehub_broadcasts_total",
		Help: "Leaderboard update broadcasts performed.",
	})
	sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scorehub_sends_total",
		Help: "Per-subscriber send attempts by result.",
	}, []string{"result"})
)

// Conn is the transport handle the registry delivers to. The registry
// does not own the connection; a failed send is swallowed here and it
// is the caller's read loop that must unregister afterwards.
type Conn interface {
	SendText(ctx context.Context, data string) error
}

// Update is the wire message sent to subscribers after a score insert.
type Update struct {
	Event   string         `json:"event"`
	GameID  int64          `json:"game_id"`
	Payload map[string]any `json:"payload"`
}

// Registry holds game-scoped subscriber buckets plus a set of global
// subscribers interested in every game.
type Registry struct {
	mu     sync.Mutex
	global map[Conn]struct{}
	games  map[int64]map[Conn]struct{}
}

func New() *Registry {
	return &Registry{
		global: make(map[Conn]struct{}),
		games:  make(map[int64]map[Conn]struct{}),
	}
}

// Register adds a subscriber, scoped to a game when gameID is non-nil.
// Re-registering the same handle is a no-op.
func (r *Registry) Register(c Conn, gameID *int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.global
	if gameID != nil {
		var ok bool
		bucket, ok = r.games[*gameID]
		if !ok {
			bucket = make(map[Conn]struct{})
			r.games[*gameID] = bucket
		}
	}
	if _, ok := bucket[c]; ok {
		return
	}
	bucket[c] = struct{}{}
	subscribersGauge.Inc()
}

// Unregister removes a subscriber from the scope it registered under.
// Unknown handles are ignored; an emptied game bucket is deleted.
func (r *Registry) Unregister(c Conn, gameID *int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gameID == nil {
		if _, ok := r.global[c]; ok {
			delete(r.global, c)
			subscribersGauge.Dec()
		}
		return
	}

	bucket, ok := r.games[*gameID]
	if !ok {
		return
	}
	if _, ok := bucket[c]; ok {
		delete(bucket, c)
		subscribersGauge.Dec()
	}
	if len(bucket) == 0 {
		delete(r.games, *gameID)
	}
}

// Subscribers returns the current number of registered handles.
func (r *Registry) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.global)
	for _, bucket := range r.games {
		n += len(bucket)
	}
	return n
}

// Broadcast delivers a leaderboard update to the game's scoped
// subscribers first, then to global subscribers, sending at most once
// per handle. The recipient lists are snapshotted under the mutex and
// all sends happen after it is released, so a slow subscriber cannot
// stall register/unregister. Failed sends are counted and dropped.
func (r *Registry) Broadcast(ctx context.Context, gameID int64, payload map[string]any) {
	msg, err := json.Marshal(Update{Event: "leaderboard_update", GameID: gameID, Payload: payload})
	if err != nil {
		log.Printf("[Registry] Marshal error: %v\n", err)
		return
	}
	data := string(msg)

	r.mu.Lock()
	scoped := make([]Conn, 0, len(r.games[gameID]))
	for c := range r.games[gameID] {
		scoped = append(scoped, c)
	}
	global := make([]Conn, 0, len(r.global))
	for c := range r.global {
		global = append(global, c)
	}
	r.mu.Unlock()

	broadcastsTotal.Inc()

	attempted := make(map[Conn]struct{}, len(scoped)+len(global))
	for _, c := range scoped {
		attempted[c] = struct{}{}
		send(ctx, c, data)
	}
	for _, c := range global {
		if _, ok := attempted[c]; ok {
			continue
		}
		send(ctx, c, data)
	}
}

func send(ctx context.Context, c Conn, data string) {
	if err := c.SendText(ctx, data); err != nil {
		sendsTotal.WithLabelValues("error").Inc()
		return
	}
	sendsTotal.WithLabelValues("ok").Inc()
}
