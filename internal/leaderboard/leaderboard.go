// Package leaderboard derives best-score-per-user rankings from the
// append-only score log. Nothing here is cached: every page and every
// rank is recomputed from the events passed in, so results always
// reflect the log as of the read.
package leaderboard

import (
	"sort"
	"time"

	"scorehub/internal/db"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry is one user's best score for a game.
type Entry struct {
	UserID    int64     `json:"user_id"`
	BestScore int64     `json:"best_score"`
	BestAt    time.Time `json:"best_at"`
}

// Less reports whether a sorts strictly before b: higher score first,
// then earlier timestamp (first to reach the high score wins the tie),
// then lower user id as the final deterministic discriminator.
func Less(a, b Entry) bool {
	if a.BestScore != b.BestScore {
		return a.BestScore > b.BestScore
	}
	if !a.BestAt.Equal(b.BestAt) {
		return a.BestAt.Before(b.BestAt)
	}
	return a.UserID < b.UserID
}

// Reduce folds a game's score log down to one Entry per user, sorted by
// Less. Events must be in insertion order; on a full (score, created_at)
// tie the earliest event wins, which keeps repeated calls over the same
// log byte-identical.
func Reduce(events []db.ScoreEvent) []Entry {
	best := make(map[int64]Entry, len(events))
	for _, ev := range events {
		cur, ok := best[ev.UserID]
		if !ok || ev.Score > cur.BestScore ||
			(ev.Score == cur.BestScore && ev.CreatedAt.Before(cur.BestAt)) {
			best[ev.UserID] = Entry{UserID: ev.UserID, BestScore: ev.Score, BestAt: ev.CreatedAt}
		}
	}

	entries := make([]Entry, 0, len(best))
	for _, e := range best {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })
	return entries
}

// ClampPage normalizes pagination inputs: limit defaults to
// DefaultLimit when non-positive and is capped at MaxLimit, offset is
// floored at zero.
func ClampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page slices a sorted entry list. An offset past the end yields an
// empty (non-nil) slice.
func Page(entries []Entry, limit, offset int) []Entry {
	limit, offset = ClampPage(limit, offset)
	if offset >= len(entries) {
		return []Entry{}
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}

// RankOf returns a user's entry and 1-based rank within a sorted entry
// list, or false if the user has no entry.
func RankOf(entries []Entry, userID int64) (Entry, int, bool) {
	for i, e := range entries {
		if e.UserID == userID {
			return e, i + 1, true
		}
	}
	return Entry{}, 0, false
}
