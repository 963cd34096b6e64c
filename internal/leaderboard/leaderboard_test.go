package leaderboard

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"scorehub/internal/db"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func ev(id, userID, score int64, sec int) db.ScoreEvent {
	return db.ScoreEvent{ID: id, GameID: 1, UserID: userID, Score: score, CreatedAt: at(sec)}
}

func TestReduce_KeepsEarliestHighScore(t *testing.T) {
	// A scores 10 at t1, B scores 10 at t2, A later scores only 5
	events := []db.ScoreEvent{
		ev(1, 1, 10, 1),
		ev(2, 2, 10, 2),
		ev(3, 1, 5, 3),
	}

	entries := Reduce(events)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].UserID != 1 || entries[0].BestScore != 10 || !entries[0].BestAt.Equal(at(1)) {
		t.Errorf("entries[0] = %+v, want user 1 score 10 at t1", entries[0])
	}
	if entries[1].UserID != 2 || entries[1].BestScore != 10 {
		t.Errorf("entries[1] = %+v, want user 2 score 10", entries[1])
	}
}

func TestReduce_OneEntryPerUser(t *testing.T) {
	events := []db.ScoreEvent{
		ev(1, 1, 3, 1),
		ev(2, 1, 9, 2),
		ev(3, 1, 7, 3),
		ev(4, 2, 9, 4),
	}

	entries := Reduce(events)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	seen := map[int64]bool{}
	for _, e := range entries {
		if seen[e.UserID] {
			t.Errorf("user %d appears twice", e.UserID)
		}
		seen[e.UserID] = true
	}
	if entries[0].UserID != 1 {
		t.Errorf("user 1 reached 9 first, should rank above user 2: %+v", entries)
	}
}

func TestReduce_UserIDTieBreak(t *testing.T) {
	// Same score, same timestamp: lower user id first
	events := []db.ScoreEvent{
		ev(1, 5, 10, 1),
		ev(2, 3, 10, 1),
	}

	entries := Reduce(events)
	if entries[0].UserID != 3 || entries[1].UserID != 5 {
		t.Errorf("expected user id ascending tie-break, got %+v", entries)
	}
}

func TestReduce_Ordering(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var events []db.ScoreEvent
	for i := 0; i < 500; i++ {
		events = append(events, ev(int64(i+1), int64(rng.Intn(40)+1), int64(rng.Intn(20)), rng.Intn(100)))
	}

	entries := Reduce(events)
	for i := 1; i < len(entries); i++ {
		if Less(entries[i], entries[i-1]) {
			t.Fatalf("entries out of order at %d: %+v before %+v", i, entries[i-1], entries[i])
		}
		if entries[i].BestScore > entries[i-1].BestScore {
			t.Fatalf("score not non-increasing at %d", i)
		}
	}
}

func TestReduce_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var events []db.ScoreEvent
	for i := 0; i < 300; i++ {
		events = append(events, ev(int64(i+1), int64(rng.Intn(25)+1), int64(rng.Intn(10)), rng.Intn(30)))
	}

	first := Reduce(events)
	for i := 0; i < 10; i++ {
		if !reflect.DeepEqual(first, Reduce(events)) {
			t.Fatal("Reduce() is not deterministic over a fixed log")
		}
	}
}

func TestRankOf_ConsistentWithOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var events []db.ScoreEvent
	for i := 0; i < 400; i++ {
		events = append(events, ev(int64(i+1), int64(rng.Intn(30)+1), int64(rng.Intn(15)), rng.Intn(50)))
	}

	entries := Reduce(events)
	for i, e := range entries {
		_, rank, ok := RankOf(entries, e.UserID)
		if !ok {
			t.Fatalf("user %d missing from its own ranking", e.UserID)
		}
		if rank != i+1 {
			t.Errorf("user %d: rank = %d, want %d", e.UserID, rank, i+1)
		}
	}
}

func TestRankOf_Scenario(t *testing.T) {
	events := []db.ScoreEvent{
		ev(1, 1, 10, 1),
		ev(2, 2, 10, 2),
		ev(3, 1, 5, 3),
	}

	entries := Reduce(events)
	_, rank, ok := RankOf(entries, 2)
	if !ok || rank != 2 {
		t.Errorf("rank of user 2 = %d (ok=%v), want 2", rank, ok)
	}
	_, rank, _ = RankOf(entries, 1)
	if rank != 1 {
		t.Errorf("rank of user 1 = %d, want 1", rank)
	}
}

func TestRankOf_UnknownUser(t *testing.T) {
	entries := Reduce([]db.ScoreEvent{ev(1, 1, 10, 1)})
	if _, _, ok := RankOf(entries, 99); ok {
		t.Error("RankOf() should report missing for user with no scores")
	}
}

func TestReduce_EmptyLog(t *testing.T) {
	entries := Reduce(nil)
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
	page := Page(entries, 10, 0)
	if len(page) != 0 {
		t.Errorf("len(page) = %d, want 0", len(page))
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 10, 0},
		{-5, -3, 10, 0},
		{50, 20, 50, 20},
		{101, 0, 100, 0},
		{1, 0, 1, 0},
	}
	for _, tt := range tests {
		limit, offset := ClampPage(tt.limit, tt.offset)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Errorf("ClampPage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.limit, tt.offset, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestPage_Slicing(t *testing.T) {
	var events []db.ScoreEvent
	for i := int64(1); i <= 25; i++ {
		events = append(events, ev(i, i, 100-i, int(i)))
	}
	entries := Reduce(events)

	page := Page(entries, 10, 0)
	if len(page) != 10 {
		t.Fatalf("len(page) = %d, want 10", len(page))
	}
	if page[0].UserID != 1 {
		t.Errorf("page[0].UserID = %d, want 1 (highest score)", page[0].UserID)
	}

	page = Page(entries, 10, 20)
	if len(page) != 5 {
		t.Errorf("len(last page) = %d, want 5", len(page))
	}

	page = Page(entries, 10, 100)
	if page == nil || len(page) != 0 {
		t.Errorf("page past end = %v, want empty non-nil", page)
	}
}
