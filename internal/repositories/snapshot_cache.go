package repositories

import (
	"fmt"

	"github.com/averymorin/tunelist/internal/models"
)

// SnapshotCacheAdapter implements tasks.SnapshotCacher using SnapshotWriter.
//
// The snapshot marker returned by the writer is dropped; callers that need
// it read it back via SnapshotRepository.Latest.
type SnapshotCacheAdapter struct {
	writer *SnapshotWriter
}

// NewSnapshotCacheAdapter creates a new SnapshotCacheAdapter with the given writer
func NewSnapshotCacheAdapter(writer *SnapshotWriter) *SnapshotCacheAdapter {
	return &SnapshotCacheAdapter{writer: writer}
}

// CacheSnapshot persists an authoritative snapshot for domain.
func (a *SnapshotCacheAdapter) CacheSnapshot(domain string, entries []models.EnrichedEntry) error {
	if _, err := a.writer.Write(domain, entries); err != nil {
		return fmt.Errorf("failed to cache %s snapshot: %w", domain, err)
	}
	return nil
}
