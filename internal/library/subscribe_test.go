package library

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
)

type mockChannel struct {
	topic        string
	bindings     []services.ChangeConfig
	handlers     []services.ChangeHandler
	subscribes   int
	subscribeErr error
}

func (c *mockChannel) Topic() string { return c.topic }

func (c *mockChannel) On(cfg services.ChangeConfig, handler services.ChangeHandler) services.Channel {
	c.bindings = append(c.bindings, cfg)
	c.handlers = append(c.handlers, handler)
	return c
}

func (c *mockChannel) Subscribe(ctx context.Context, status func(services.SubscriptionStatus, error)) error {
	c.subscribes++
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	if status != nil {
		status(services.StatusSubscribed, nil)
	}
	return nil
}

type mockRealtime struct {
	channels []*mockChannel
	removed  []services.Channel

	subscribeErr error
}

func (r *mockRealtime) Channel(topic string) services.Channel {
	ch := &mockChannel{topic: topic, subscribeErr: r.subscribeErr}
	r.channels = append(r.channels, ch)
	return ch
}

func (r *mockRealtime) RemoveChannel(ch services.Channel) {
	r.removed = append(r.removed, ch)
}

func newManager(t *testing.T) (*Manager, *mockRealtime) {
	t.Helper()
	rt := &mockRealtime{}
	slice := NewSlice(SongDomain, twoSongBackend(), nil)
	return NewManager(slice, rt, "public", nil), rt
}

func TestSubscribeMembership(t *testing.T) {
	t.Run("binds the user filter", func(t *testing.T) {
		m, rt := newManager(t)

		cleanup, err := m.SubscribeMembership(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("SubscribeMembership() error = %v", err)
		}
		defer cleanup()

		if len(rt.channels) != 1 {
			t.Fatalf("expected 1 channel, got %d", len(rt.channels))
		}
		ch := rt.channels[0]
		if ch.topic != "realtime:song_library:user-1" {
			t.Errorf("topic = %q", ch.topic)
		}
		if ch.subscribes != 1 {
			t.Errorf("subscribe calls = %d, want 1", ch.subscribes)
		}

		cfg := ch.bindings[0]
		if cfg.Event != "*" || cfg.Schema != "public" || cfg.Table != "song_library" {
			t.Errorf("binding = %+v", cfg)
		}
		if cfg.Filter != "user_id=eq.user-1" {
			t.Errorf("filter = %q", cfg.Filter)
		}
	})

	t.Run("events flow into the slice", func(t *testing.T) {
		m, rt := newManager(t)

		cleanup, err := m.SubscribeMembership(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("SubscribeMembership() error = %v", err)
		}
		defer cleanup()

		rt.channels[0].handlers[0](services.Row{
			"eventType": "INSERT",
			"new": map[string]any{
				"user_id":       "user-1",
				"song_id":       "song-7",
				"song_owner_id": "owner-1",
			},
		})

		if !m.slice.IsMember("song-7") {
			t.Error("delivered insert should reach the slice")
		}
	})

	t.Run("resubscribe closes the previous channel", func(t *testing.T) {
		m, rt := newManager(t)

		if _, err := m.SubscribeMembership(context.Background(), "user-1"); err != nil {
			t.Fatalf("first SubscribeMembership() error = %v", err)
		}
		if _, err := m.SubscribeMembership(context.Background(), "user-2"); err != nil {
			t.Fatalf("second SubscribeMembership() error = %v", err)
		}

		if len(rt.removed) != 1 || rt.removed[0] != rt.channels[0] {
			t.Errorf("expected exactly the first channel removed, got %v", rt.removed)
		}
	})

	t.Run("empty user id", func(t *testing.T) {
		m, _ := newManager(t)
		if _, err := m.SubscribeMembership(context.Background(), ""); err == nil {
			t.Fatal("expected error for empty user id")
		}
	})

	t.Run("subscribe failure unregisters the channel", func(t *testing.T) {
		rt := &mockRealtime{subscribeErr: fmt.Errorf("%w: join refused", shared.ErrSubscribeFailed)}
		slice := NewSlice(SongDomain, twoSongBackend(), nil)
		m := NewManager(slice, rt, "public", nil)

		if _, err := m.SubscribeMembership(context.Background(), "user-1"); err == nil {
			t.Fatal("expected subscribe error")
		}

		// The failed channel must be handed back to the client so the
		// topic is not permanently stuck on a dead registration.
		if len(rt.removed) != 1 || rt.removed[0] != rt.channels[0] {
			t.Fatalf("failed channel should be removed, got %v", rt.removed)
		}

		rt.subscribeErr = nil
		cleanup, err := m.SubscribeMembership(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("retry error = %v", err)
		}
		defer cleanup()

		if len(rt.removed) != 1 {
			t.Errorf("retry should not remove more channels, removed = %d", len(rt.removed))
		}
	})

	t.Run("cleanup is idempotent", func(t *testing.T) {
		m, rt := newManager(t)

		cleanup, err := m.SubscribeMembership(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("SubscribeMembership() error = %v", err)
		}

		cleanup()
		cleanup()

		if len(rt.removed) != 1 {
			t.Errorf("expected 1 removal, got %d", len(rt.removed))
		}
	})
}

func TestSubscribeMetadata(t *testing.T) {
	t.Run("binds the id set filter", func(t *testing.T) {
		m, rt := newManager(t)

		cleanup, err := m.SubscribeMetadata(context.Background(), []string{"song-1", "song-2"})
		if err != nil {
			t.Fatalf("SubscribeMetadata() error = %v", err)
		}
		defer cleanup()

		cfg := rt.channels[0].bindings[0]
		if cfg.Table != "songs" {
			t.Errorf("table = %q, want songs", cfg.Table)
		}
		if cfg.Filter != `id=in.("song-1","song-2")` {
			t.Errorf("filter = %q", cfg.Filter)
		}
	})

	t.Run("id set change replaces the channel", func(t *testing.T) {
		m, rt := newManager(t)

		if _, err := m.SubscribeMetadata(context.Background(), []string{"a"}); err != nil {
			t.Fatalf("first SubscribeMetadata() error = %v", err)
		}
		if _, err := m.SubscribeMetadata(context.Background(), []string{"b", "c"}); err != nil {
			t.Fatalf("second SubscribeMetadata() error = %v", err)
		}

		if len(rt.channels) != 2 {
			t.Fatalf("expected 2 channels, got %d", len(rt.channels))
		}
		if len(rt.removed) != 1 || rt.removed[0] != rt.channels[0] {
			t.Errorf("expected exactly the first channel removed, got %v", rt.removed)
		}
		if got := rt.channels[1].bindings[0].Filter; got != `id=in.("b","c")` {
			t.Errorf("replacement filter = %q", got)
		}
	})

	t.Run("filter is capped", func(t *testing.T) {
		m, rt := newManager(t)

		ids := make([]string, maxFilterIDs+20)
		for i := range ids {
			ids[i] = fmt.Sprintf("song-%03d", i)
		}

		cleanup, err := m.SubscribeMetadata(context.Background(), ids)
		if err != nil {
			t.Fatalf("SubscribeMetadata() error = %v", err)
		}
		defer cleanup()

		filter := rt.channels[0].bindings[0].Filter
		if n := strings.Count(filter, "song-"); n != maxFilterIDs {
			t.Errorf("filter carries %d ids, want %d", n, maxFilterIDs)
		}
		if !strings.Contains(filter, `"song-099"`) || strings.Contains(filter, `"song-100"`) {
			t.Errorf("filter should keep the first %d ids: %q", maxFilterIDs, filter)
		}
	})

	t.Run("empty id set is a no-op", func(t *testing.T) {
		m, rt := newManager(t)

		cleanup, err := m.SubscribeMetadata(context.Background(), nil)
		if err != nil {
			t.Fatalf("SubscribeMetadata() error = %v", err)
		}
		cleanup()

		if len(rt.channels) != 0 {
			t.Errorf("expected no channels, got %d", len(rt.channels))
		}
	})

	t.Run("metadata events flow into the slice", func(t *testing.T) {
		rt := &mockRealtime{}
		slice := NewSlice(SongDomain, twoSongBackend(), nil)
		if err := slice.Fetch(context.Background()); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		m := NewManager(slice, rt, "public", nil)

		cleanup, err := m.SubscribeMetadata(context.Background(), slice.IDs())
		if err != nil {
			t.Fatalf("SubscribeMetadata() error = %v", err)
		}
		defer cleanup()

		rt.channels[0].handlers[0](services.Row{
			"eventType": "UPDATE",
			"new":       map[string]any{"id": "song-1", "name": "Dust II", "slug": "dust-ii"},
		})

		if got := slice.Entries()["song-1"].EntityName; got != "Dust II" {
			t.Errorf("entity name = %q, want Dust II", got)
		}
	})
}

func TestManagerClose(t *testing.T) {
	m, rt := newManager(t)

	if _, err := m.SubscribeMembership(context.Background(), "user-1"); err != nil {
		t.Fatalf("SubscribeMembership() error = %v", err)
	}
	if _, err := m.SubscribeMetadata(context.Background(), []string{"song-1"}); err != nil {
		t.Fatalf("SubscribeMetadata() error = %v", err)
	}

	m.Close()
	m.Close()

	if len(rt.removed) != 2 {
		t.Errorf("expected 2 removals, got %d", len(rt.removed))
	}

	if _, err := m.SubscribeMembership(context.Background(), "user-1"); err == nil {
		t.Error("subscribe after Close should fail")
	}
}
