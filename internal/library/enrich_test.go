package library

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
)

func membershipRows(t *testing.T, maps []map[string]any) []models.Membership {
	t.Helper()
	rows := make([]models.Membership, 0, len(maps))
	for _, m := range maps {
		row, ok := models.SongLibraryRowFromMap(m)
		if !ok {
			t.Fatalf("bad fixture row: %v", m)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestEnrich(t *testing.T) {
	t.Run("two batched queries", func(t *testing.T) {
		backend := twoSongBackend()
		s := NewSlice(SongDomain, backend, nil)

		rows := membershipRows(t, []map[string]any{
			{"user_id": "user-1", "song_id": "song-1", "song_owner_id": "owner-1"},
			{"user_id": "user-1", "song_id": "song-2", "song_owner_id": "owner-2"},
			{"user_id": "user-1", "song_id": "song-1", "song_owner_id": "owner-1"}, // duplicate
		})

		entries, err := s.Enrich(context.Background(), rows)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if len(entries) != len(rows) {
			t.Fatalf("expected %d entries, got %d", len(rows), len(entries))
		}

		// Query count stays at two no matter how many rows come in.
		if len(backend.selects) != 2 {
			t.Fatalf("expected 2 queries, got %d: %+v", len(backend.selects), backend.selects)
		}

		meta := backend.selects[0]
		if meta.Table != "songs" {
			t.Errorf("first query table = %q, want songs", meta.Table)
		}
		if ids := meta.In["id"]; !slices.Equal(ids, []string{"song-1", "song-2"}) {
			t.Errorf("metadata filter ids = %v, want deduplicated [song-1 song-2]", ids)
		}

		profiles := backend.selects[1]
		if profiles.Table != "profiles" {
			t.Errorf("second query table = %q, want profiles", profiles.Table)
		}
		if ids := profiles.In["id"]; !slices.Equal(ids, []string{"owner-1", "owner-2"}) {
			t.Errorf("profiles filter ids = %v, want deduplicated [owner-1 owner-2]", ids)
		}
	})

	t.Run("missing matches leave fields empty", func(t *testing.T) {
		backend := twoSongBackend()
		s := NewSlice(SongDomain, backend, nil)

		rows := membershipRows(t, []map[string]any{
			{"user_id": "user-1", "song_id": "song-1", "song_owner_id": "owner-1"},
			{"user_id": "user-1", "song_id": "song-2", "song_owner_id": "owner-2"},
		})

		entries, err := s.Enrich(context.Background(), rows)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}

		if entries[0].OwnerUsername != "alice" || entries[0].EntityName != "Dust" {
			t.Errorf("entry 0 = %+v, want alice/Dust", entries[0])
		}
		// owner-2 has no profile row.
		if entries[1].OwnerUsername != "" {
			t.Errorf("entry 1 username = %q, want empty", entries[1].OwnerUsername)
		}
		if entries[1].EntityName != "Rain" {
			t.Errorf("entry 1 name = %q, want Rain", entries[1].EntityName)
		}
	})

	t.Run("batch failure fails the call", func(t *testing.T) {
		backend := &mockBackend{
			selectFn: func(p services.SelectParams) ([]services.Row, error) {
				if p.Table == "profiles" {
					return nil, fmt.Errorf("%w: timeout", shared.ErrNetwork)
				}
				return []services.Row{}, nil
			},
		}
		s := NewSlice(SongDomain, backend, nil)

		rows := membershipRows(t, []map[string]any{
			{"user_id": "user-1", "song_id": "song-1", "song_owner_id": "owner-1"},
		})

		if _, err := s.Enrich(context.Background(), rows); err == nil {
			t.Fatal("expected enrichment error")
		}
	})

	t.Run("no rows issues no queries", func(t *testing.T) {
		backend := twoSongBackend()
		s := NewSlice(SongDomain, backend, nil)

		entries, err := s.Enrich(context.Background(), nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries, got %d", len(entries))
		}
		if len(backend.selects) != 0 {
			t.Errorf("expected no queries, got %d", len(backend.selects))
		}
	})
}

func TestEnrichOne(t *testing.T) {
	t.Run("tolerates lookup failure", func(t *testing.T) {
		backend := &mockBackend{
			selectFn: func(services.SelectParams) ([]services.Row, error) {
				return nil, fmt.Errorf("%w: timeout", shared.ErrNetwork)
			},
		}
		s := NewSlice(SongDomain, backend, nil)

		row, _ := models.SongLibraryRowFromMap(map[string]any{
			"user_id": "user-1", "song_id": "song-1", "song_owner_id": "owner-1",
		})

		entry := s.EnrichOne(context.Background(), row)
		if entry.Row.EntityID() != "song-1" {
			t.Errorf("entity id = %q, want song-1", entry.Row.EntityID())
		}
		if entry.OwnerUsername != "" {
			t.Errorf("username = %q, want empty on lookup failure", entry.OwnerUsername)
		}
	})

	t.Run("resolves owner username", func(t *testing.T) {
		s := NewSlice(SongDomain, twoSongBackend(), nil)

		row, _ := models.SongLibraryRowFromMap(map[string]any{
			"user_id": "user-1", "song_id": "song-1", "song_owner_id": "owner-1",
		})

		if entry := s.EnrichOne(context.Background(), row); entry.OwnerUsername != "alice" {
			t.Errorf("username = %q, want alice", entry.OwnerUsername)
		}
	})
}
