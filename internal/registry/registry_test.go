package registry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// fakeConn records every message sent to it.
type fakeConn struct {
	mu       sync.Mutex
	received []string
	fail     bool
}

func (f *fakeConn) SendText(ctx context.Context, data string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection closed")
	}
	f.received = append(f.received, data)
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func (f *fakeConn) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) == 0 {
		return ""
	}
	return f.received[len(f.received)-1]
}

func gid(v int64) *int64 { return &v }

func TestBroadcast_ScopedAndGlobal(t *testing.T) {
	r := New()
	s1 := &fakeConn{} // scoped to 7
	s2 := &fakeConn{} // global
	s3 := &fakeConn{} // scoped to 9

	r.Register(s1, gid(7))
	r.Register(s2, nil)
	r.Register(s3, gid(9))

	r.Broadcast(context.Background(), 7, map[string]any{"x": 1})

	if s1.count() != 1 {
		t.Errorf("s1 received %d messages, want 1", s1.count())
	}
	if s2.count() != 1 {
		t.Errorf("s2 received %d messages, want 1", s2.count())
	}
	if s3.count() != 0 {
		t.Errorf("s3 received %d messages, want 0", s3.count())
	}

	var update Update
	if err := json.Unmarshal([]byte(s1.last()), &update); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if update.Event != "leaderboard_update" || update.GameID != 7 {
		t.Errorf("unexpected update: %+v", update)
	}
	if update.Payload["x"] != float64(1) {
		t.Errorf("payload = %v, want x=1", update.Payload)
	}
}

func TestBroadcast_NoDuplicateDelivery(t *testing.T) {
	r := New()
	c := &fakeConn{}

	// Handle present both scoped and global; one broadcast must reach
	// it exactly once.
	r.Register(c, gid(7))
	r.Register(c, nil)

	r.Broadcast(context.Background(), 7, map[string]any{"x": 1})

	if c.count() != 1 {
		t.Errorf("received %d messages, want 1", c.count())
	}
}

func TestBroadcast_FailedSendIsolated(t *testing.T) {
	r := New()
	broken := &fakeConn{fail: true}
	healthy := &fakeConn{}

	r.Register(broken, gid(7))
	r.Register(healthy, gid(7))

	r.Broadcast(context.Background(), 7, map[string]any{"x": 1})

	if healthy.count() != 1 {
		t.Errorf("healthy subscriber received %d messages, want 1", healthy.count())
	}
}

func TestBroadcast_NoSubscribers(t *testing.T) {
	r := New()
	// Broadcasting into the void is a normal no-op
	r.Broadcast(context.Background(), 42, map[string]any{"x": 1})
}

func TestRegister_Idempotent(t *testing.T) {
	r := New()
	c := &fakeConn{}

	r.Register(c, gid(7))
	r.Register(c, gid(7))

	if n := r.Subscribers(); n != 1 {
		t.Errorf("Subscribers() = %d, want 1", n)
	}

	r.Broadcast(context.Background(), 7, map[string]any{"x": 1})
	if c.count() != 1 {
		t.Errorf("received %d messages after duplicate register, want 1", c.count())
	}
}

func TestUnregister_RemovesAndCleansBucket(t *testing.T) {
	r := New()
	c := &fakeConn{}

	r.Register(c, gid(7))
	r.Unregister(c, gid(7))

	if n := r.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
	r.mu.Lock()
	_, ok := r.games[7]
	r.mu.Unlock()
	if ok {
		t.Error("empty game bucket should be deleted")
	}

	r.Broadcast(context.Background(), 7, map[string]any{"x": 1})
	if c.count() != 0 {
		t.Error("unregistered subscriber must not receive broadcasts")
	}
}

func TestUnregister_SafeWhenAbsent(t *testing.T) {
	r := New()
	c := &fakeConn{}

	// Never registered, unknown game, double unregister: all no-ops
	r.Unregister(c, gid(7))
	r.Unregister(c, nil)
	r.Register(c, nil)
	r.Unregister(c, nil)
	r.Unregister(c, nil)

	if n := r.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := &fakeConn{}
			scope := gid(int64(n % 3))
			if n%5 == 0 {
				scope = nil
			}
			for j := 0; j < 50; j++ {
				r.Register(c, scope)
				r.Broadcast(context.Background(), int64(n%3), map[string]any{"n": n})
				r.Unregister(c, scope)
			}
		}(i)
	}
	wg.Wait()

	if n := r.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d after churn, want 0", n)
	}
}
