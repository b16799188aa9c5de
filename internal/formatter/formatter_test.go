package formatter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/averymorin/tunelist/internal/models"
)

func sampleEntries() []models.EnrichedEntry {
	return []models.EnrichedEntry{
		{
			Row: models.SongLibraryRow{
				User:      "user-1",
				SongID:    "song-1",
				SongOwner: "owner-1",
				CreatedAt: "2026-01-02T03:04:05Z",
			},
			OwnerUsername: "alice",
			EntityName:    "Dust",
			EntitySlug:    "dust",
		},
		{
			Row: models.SongLibraryRow{
				User:      "user-1",
				SongID:    "song-2",
				SongOwner: "owner-2",
			},
			EntityName: "Rain",
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "ID,Name,Slug,Owner,OwnerID,AddedAt") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "song-1,Dust,dust,alice,owner-1,2026-01-02T03:04:05Z") {
			t.Errorf("CSV missing first record, got: %s", output)
		}
		if !strings.Contains(output, "song-2,Rain,,,owner-2,") {
			t.Errorf("CSV should keep empty fields for unenriched entry, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("song", sampleEntries())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# song library") {
			t.Errorf("Markdown missing heading, got: %s", output)
		}
		if !strings.Contains(output, "**Entries**: 2") {
			t.Errorf("Markdown missing entry count")
		}
		if !strings.Contains(output, "1. Dust by alice") {
			t.Errorf("Markdown missing enriched entry, got: %s", output)
		}
		if !strings.Contains(output, "2. Rain\n") {
			t.Errorf("Markdown should omit owner when unknown, got: %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("song", sampleEntries())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Library: song") {
			t.Errorf("text missing header, got: %s", output)
		}
		if !strings.Contains(output, "1. alice - Dust") {
			t.Errorf("text missing first entry, got: %s", output)
		}
	})

	t.Run("ExportToText falls back to entity id", func(t *testing.T) {
		entries := []models.EnrichedEntry{
			{Row: models.SongLibraryRow{User: "user-1", SongID: "song-9", SongOwner: "owner-9"}},
		}

		data, err := ExportToText("song", entries)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		if !strings.Contains(string(data), "1. song-9") {
			t.Errorf("expected entity id fallback, got: %s", string(data))
		}
	})

	t.Run("ToEntriesJSON", func(t *testing.T) {
		data, err := ToEntriesJSON(sampleEntries())
		if err != nil {
			t.Fatalf("ToEntriesJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(decoded))
		}
		if decoded[0]["entity_id"] != "song-1" || decoded[0]["owner"] != "alice" {
			t.Errorf("unexpected first entry: %v", decoded[0])
		}
		if _, ok := decoded[1]["owner"]; ok {
			t.Errorf("empty owner should be omitted: %v", decoded[1])
		}
	})
}

func TestFileExports(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "songs.csv")

		written, err := WriteCSVExport("song", sampleEntries(), path)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if written != path {
			t.Errorf("returned path = %q, want %q", written, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read exported file: %v", err)
		}
		if !strings.Contains(string(data), "song-1") {
			t.Errorf("exported file missing entries")
		}
	})

	t.Run("WriteMarkdownExport defaults the filename", func(t *testing.T) {
		dir := t.TempDir()
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("failed to get working directory: %v", err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("failed to change directory: %v", err)
		}
		defer os.Chdir(cwd)

		written, err := WriteMarkdownExport("song", sampleEntries(), "")
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if written != "song_library.md" {
			t.Errorf("default filename = %q, want song_library.md", written)
		}
		if _, err := os.Stat(filepath.Join(dir, "song_library.md")); err != nil {
			t.Errorf("exported file missing: %v", err)
		}
	})
}
