package leaderboard

import "scorehub/internal/db"

// Queries computes rankings against the stored score log. Game
// existence is not checked here: a game with no events produces an
// empty page, same as an unknown game.
type Queries struct {
	DB *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{DB: database}
}

// TopPage returns one page of the leaderboard plus the total number of
// distinct users with at least one score, independent of pagination.
func (q *Queries) TopPage(gameID int64, limit, offset int) ([]Entry, int, error) {
	events, err := q.DB.EventsForGame(gameID)
	if err != nil {
		return nil, 0, err
	}
	entries := Reduce(events)
	return Page(entries, limit, offset), len(entries), nil
}

// UserEntry returns a user's best score and rank for a game, or nil if
// the user has no scores there.
func (q *Queries) UserEntry(gameID, userID int64) (*Entry, int, error) {
	events, err := q.DB.EventsForGame(gameID)
	if err != nil {
		return nil, 0, err
	}
	entry, rank, ok := RankOf(Reduce(events), userID)
	if !ok {
		return nil, 0, nil
	}
	return &entry, rank, nil
}
