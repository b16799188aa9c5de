package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/shared"
)

// Snapshot records one cache refresh of a library domain.
type Snapshot struct {
	ID         string
	Domain     string
	EntryCount int
	TakenAt    time.Time
}

// SnapshotRepository records cache refreshes in the snapshots table.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Record inserts a snapshot marker for a completed refresh.
func (r *SnapshotRepository) Record(domain string, entryCount int) (*Snapshot, error) {
	snap := &Snapshot{
		ID:         shared.GenerateID(),
		Domain:     domain,
		EntryCount: entryCount,
		TakenAt:    time.Now(),
	}

	_, err := r.db.Exec(
		"INSERT INTO snapshots (id, domain, entry_count, taken_at) VALUES (?, ?, ?, ?)",
		snap.ID, snap.Domain, snap.EntryCount, snap.TakenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot: %w", err)
	}

	return snap, nil
}

// Latest returns the most recent snapshot for a domain, or nil when the
// domain has never been refreshed.
func (r *SnapshotRepository) Latest(domain string) (*Snapshot, error) {
	row := r.db.QueryRow(
		"SELECT id, domain, entry_count, taken_at FROM snapshots WHERE domain = ? ORDER BY taken_at DESC LIMIT 1",
		domain,
	)

	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.Domain, &snap.EntryCount, &snap.TakenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return &snap, nil
}

// SnapshotWriter bundles the entry and snapshot repositories into the single
// operation the sync tasks need: persist an authoritative domain snapshot.
type SnapshotWriter struct {
	entries   *LibraryRepository
	snapshots *SnapshotRepository
}

// NewSnapshotWriter creates a SnapshotWriter over both repositories.
func NewSnapshotWriter(entries *LibraryRepository, snapshots *SnapshotRepository) *SnapshotWriter {
	return &SnapshotWriter{entries: entries, snapshots: snapshots}
}

// Write replaces the cached entries for domain and records the refresh.
func (w *SnapshotWriter) Write(domain string, enriched []models.EnrichedEntry) (*Snapshot, error) {
	entries := make([]*models.PersistedEntry, 0, len(enriched))
	for _, e := range enriched {
		entries = append(entries, models.NewPersistedEntry(0, domain, e))
	}

	if err := w.entries.ReplaceDomain(domain, entries); err != nil {
		return nil, err
	}

	return w.snapshots.Record(domain, len(entries))
}
