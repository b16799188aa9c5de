package library

import (
	"context"
	"testing"

	"github.com/averymorin/tunelist/internal/services"
)

func fetchedSlice(t *testing.T, backend *mockBackend) *Slice {
	t.Helper()
	s := NewSlice(SongDomain, backend, nil)
	if err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	return s
}

func TestHandleEvent(t *testing.T) {
	t.Run("insert upserts enriched entry", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		s.HandleEvent(context.Background(), services.Row{
			"eventType": "INSERT",
			"new": map[string]any{
				"user_id":       "user-1",
				"song_id":       "song-3",
				"song_owner_id": "owner-1",
			},
		})

		entry, ok := s.Entries()["song-3"]
		if !ok {
			t.Fatal("inserted entity missing from entries")
		}
		if entry.OwnerUsername != "alice" {
			t.Errorf("username = %q, want alice", entry.OwnerUsername)
		}
	})

	t.Run("duplicate insert is absorbed", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		payload := services.Row{
			"eventType": "INSERT",
			"new": map[string]any{
				"user_id":       "user-1",
				"song_id":       "song-1",
				"song_owner_id": "owner-1",
			},
		}
		s.HandleEvent(context.Background(), payload)
		s.HandleEvent(context.Background(), payload)

		if n := len(s.Entries()); n != 2 {
			t.Errorf("expected 2 entries after duplicate inserts, got %d", n)
		}
	})

	t.Run("delete with partial old removes exactly that key", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		s.HandleEvent(context.Background(), services.Row{
			"eventType": "DELETE",
			"old":       map[string]any{"song_id": "song-1"},
		})

		entries := s.Entries()
		if _, ok := entries["song-1"]; ok {
			t.Error("song-1 should be removed")
		}
		if _, ok := entries["song-2"]; !ok {
			t.Error("song-2 should remain")
		}
	})

	t.Run("delete for absent entity is a no-op", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		s.HandleEvent(context.Background(), services.Row{
			"eventType": "DELETE",
			"old":       map[string]any{"song_id": "song-404"},
		})

		if n := len(s.Entries()); n != 2 {
			t.Errorf("expected 2 entries, got %d", n)
		}
	})

	t.Run("malformed payloads leave entries unchanged", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())
		before := s.IDs()

		payloads := []services.Row{
			nil,
			{"event": "INSERT"},
			{"eventType": "TRUNCATE"},
			{"eventType": "INSERT", "new": map[string]any{"song_id": 7}},
			{"eventType": "DELETE", "old": map[string]any{}},
			{"eventType": "DELETE", "old": map[string]any{"song_id": ""}},
		}
		for _, p := range payloads {
			s.HandleEvent(context.Background(), p)
		}

		after := s.IDs()
		if len(before) != len(after) {
			t.Fatalf("entries changed: before %v, after %v", before, after)
		}
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("entries changed: before %v, after %v", before, after)
			}
		}
	})
}

func TestHandleMetaEvent(t *testing.T) {
	t.Run("update refreshes name and slug", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		s.HandleMetaEvent(context.Background(), services.Row{
			"eventType": "UPDATE",
			"new":       map[string]any{"id": "song-1", "name": "Dust II", "slug": "dust-ii"},
		})

		entry := s.Entries()["song-1"]
		if entry.EntityName != "Dust II" || entry.EntitySlug != "dust-ii" {
			t.Errorf("entry = %+v, want name Dust II slug dust-ii", entry)
		}
		// Membership fields are untouched by metadata updates.
		if entry.OwnerUsername != "alice" {
			t.Errorf("username = %q, want alice", entry.OwnerUsername)
		}
	})

	t.Run("event for entity outside the library is ignored", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		s.HandleMetaEvent(context.Background(), services.Row{
			"eventType": "UPDATE",
			"new":       map[string]any{"id": "song-404", "name": "Ghost", "slug": "ghost"},
		})

		if _, ok := s.Entries()["song-404"]; ok {
			t.Error("metadata event must not create a membership entry")
		}
	})

	t.Run("metadata delete leaves the entry", func(t *testing.T) {
		s := fetchedSlice(t, twoSongBackend())

		s.HandleMetaEvent(context.Background(), services.Row{
			"eventType": "DELETE",
			"old":       map[string]any{"id": "song-1"},
		})

		if !s.IsMember("song-1") {
			t.Error("membership entry must survive a metadata delete")
		}
	})
}
