package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"relay-chat-server/internal/model"
)

// fixedClock 每次调用返回同一时间，可手动推进
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// storeFactory 创建一个空存储，并让它使用给定的时钟
type storeFactory func(t *testing.T, clock *fixedClock) MessageStore

// runStoreSuite 对任意 MessageStore 实现跑同一组行为测试
func runStoreSuite(t *testing.T, newStore storeFactory) {
	t.Run("append assigns increasing ids", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()

		var last int64
		for i := 0; i < 5; i++ {
			msg, err := store.Append(ctx, model.MessageRoleUser, fmt.Sprintf("m%d", i), "s1", nil)
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if msg.ID <= last {
				t.Fatalf("id %d not greater than previous %d", msg.ID, last)
			}
			last = msg.ID
		}
	})

	t.Run("append stamps time and defaults metadata", func(t *testing.T) {
		clock := newFixedClock()
		store := newStore(t, clock)

		msg, err := store.Append(context.Background(), model.MessageRoleUser, "Hi", "s1", nil)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if !msg.Timestamp.Equal(clock.Now()) {
			t.Errorf("timestamp = %s, want %s", msg.Timestamp, clock.Now())
		}
		if msg.Metadata == nil || len(msg.Metadata) != 0 {
			t.Errorf("metadata = %v, want empty object", msg.Metadata)
		}
		if msg.Role != model.MessageRoleUser || msg.Content != "Hi" || msg.SessionID != "s1" {
			t.Errorf("unexpected record %+v", msg)
		}
	})

	t.Run("identical appends create distinct messages", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()

		a, _ := store.Append(ctx, model.MessageRoleUser, "same", "s1", nil)
		b, _ := store.Append(ctx, model.MessageRoleUser, "same", "s1", nil)
		if a.ID == b.ID {
			t.Fatalf("expected distinct ids, got %d twice", a.ID)
		}

		msgs, err := store.ListBySession(ctx, "s1")
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 2 {
			t.Fatalf("len = %d, want 2", len(msgs))
		}
	})

	t.Run("list by session orders by time then id", func(t *testing.T) {
		clock := newFixedClock()
		store := newStore(t, clock)
		ctx := context.Background()
		base := clock.Now()

		// 第二条消息时间更早，第三、四条时间相同
		clock.Set(base.Add(2 * time.Second))
		first, _ := store.Append(ctx, model.MessageRoleUser, "first", "s1", nil)
		clock.Set(base.Add(1 * time.Second))
		second, _ := store.Append(ctx, model.MessageRoleAssistant, "second", "s1", nil)
		clock.Set(base.Add(3 * time.Second))
		third, _ := store.Append(ctx, model.MessageRoleUser, "third", "s1", nil)
		fourth, _ := store.Append(ctx, model.MessageRoleAssistant, "fourth", "s1", nil)

		msgs, err := store.ListBySession(ctx, "s1")
		if err != nil {
			t.Fatal(err)
		}
		want := []int64{second.ID, first.ID, third.ID, fourth.ID}
		if len(msgs) != len(want) {
			t.Fatalf("len = %d, want %d", len(msgs), len(want))
		}
		for i, id := range want {
			if msgs[i].ID != id {
				t.Errorf("msgs[%d].ID = %d, want %d", i, msgs[i].ID, id)
			}
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()

		store.Append(ctx, model.MessageRoleUser, "a1", "A", nil)
		store.Append(ctx, model.MessageRoleUser, "b1", "B", nil)
		store.Append(ctx, model.MessageRoleAssistant, "a2", "A", nil)

		msgs, _ := store.ListBySession(ctx, "A")
		if len(msgs) != 2 {
			t.Fatalf("len(A) = %d, want 2", len(msgs))
		}
		for _, m := range msgs {
			if m.SessionID != "A" {
				t.Errorf("message %d leaked from session %q", m.ID, m.SessionID)
			}
		}
	})

	t.Run("unknown and empty session ids yield empty lists", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()
		store.Append(ctx, model.MessageRoleUser, "x", "s1", nil)

		for _, id := range []string{"nope", ""} {
			msgs, err := store.ListBySession(ctx, id)
			if err != nil {
				t.Fatalf("ListBySession(%q) error = %v", id, err)
			}
			if msgs == nil || len(msgs) != 0 {
				t.Errorf("ListBySession(%q) = %v, want empty non-nil slice", id, msgs)
			}
		}
	})

	t.Run("sessions listed once in first-seen order", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()

		sessions, err := store.ListSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != 0 {
			t.Fatalf("empty store sessions = %v", sessions)
		}

		for _, id := range []string{"A", "B", "A", "C", "B"} {
			store.Append(ctx, model.MessageRoleUser, "hello", id, nil)
		}

		sessions, err = store.ListSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"A", "B", "C"}
		if fmt.Sprint(sessions) != fmt.Sprint(want) {
			t.Errorf("sessions = %v, want %v", sessions, want)
		}
	})

	t.Run("metadata is stored and isolated from caller", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()

		meta := map[string]any{"model": "m-1"}
		msg, err := store.Append(ctx, model.MessageRoleAssistant, "reply", "s1", meta)
		if err != nil {
			t.Fatal(err)
		}
		meta["model"] = "mutated"
		msg.Metadata["model"] = "mutated too"

		msgs, _ := store.ListBySession(ctx, "s1")
		if got := msgs[0].Metadata["model"]; got != "m-1" {
			t.Errorf("stored metadata model = %v, want m-1", got)
		}
	})

	t.Run("concurrent appends keep ids unique", func(t *testing.T) {
		store := newStore(t, newFixedClock())
		ctx := context.Background()

		const workers, perWorker = 4, 25
		var wg sync.WaitGroup
		ids := make(chan int64, workers*perWorker)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					msg, err := store.Append(ctx, model.MessageRoleUser, "c", fmt.Sprintf("s%d", w), nil)
					if err != nil {
						t.Errorf("Append() error = %v", err)
						return
					}
					ids <- msg.ID
				}
			}(w)
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]bool)
		for id := range ids {
			if seen[id] {
				t.Fatalf("duplicate id %d", id)
			}
			seen[id] = true
		}
		if len(seen) != workers*perWorker {
			t.Errorf("got %d ids, want %d", len(seen), workers*perWorker)
		}

		sessions, _ := store.ListSessions(ctx)
		if len(sessions) != workers {
			t.Errorf("sessions = %v, want %d entries", sessions, workers)
		}
	})
}
