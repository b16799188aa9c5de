package models

import (
	"fmt"
	"time"
)

// PersistedEntry is a locally cached enriched library entry with full
// lifecycle management (id, sequence, timestamps, soft delete).
//
// Implements [Model] for use with Repository[T].
type PersistedEntry struct {
	id            string
	sequence      int
	domain        string // "song" or "playlist"
	entityID      string
	ownerID       string
	userID        string
	ownerUsername string
	entityName    string
	entitySlug    string
	addedAt       string
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time
}

// NewPersistedEntry creates a persisted entry from an enriched in-memory entry.
func NewPersistedEntry(sequence int, domain string, entry EnrichedEntry) *PersistedEntry {
	now := time.Now()
	return &PersistedEntry{
		sequence:      sequence,
		domain:        domain,
		entityID:      entry.Row.EntityID(),
		ownerID:       entry.Row.OwnerID(),
		userID:        entry.Row.UserID(),
		ownerUsername: entry.OwnerUsername,
		entityName:    entry.EntityName,
		entitySlug:    entry.EntitySlug,
		addedAt:       entry.Row.AddedAt(),
		createdAt:     now,
		updatedAt:     now,
	}
}

func (e *PersistedEntry) ID() string            { return e.id }
func (e *PersistedEntry) Sequence() int         { return e.sequence }
func (e *PersistedEntry) Domain() string        { return e.domain }
func (e *PersistedEntry) EntityID() string      { return e.entityID }
func (e *PersistedEntry) OwnerID() string       { return e.ownerID }
func (e *PersistedEntry) UserID() string        { return e.userID }
func (e *PersistedEntry) OwnerUsername() string { return e.ownerUsername }
func (e *PersistedEntry) EntityName() string    { return e.entityName }
func (e *PersistedEntry) EntitySlug() string    { return e.entitySlug }
func (e *PersistedEntry) AddedAt() string       { return e.addedAt }
func (e *PersistedEntry) CreatedAt() time.Time  { return e.createdAt }
func (e *PersistedEntry) UpdatedAt() time.Time  { return e.updatedAt }
func (e *PersistedEntry) DeletedAt() *time.Time { return e.deletedAt }

func (e *PersistedEntry) SetID(id string)           { e.id = id }
func (e *PersistedEntry) SetSequence(seq int)       { e.sequence = seq }
func (e *PersistedEntry) SetUpdatedAt(t time.Time)  { e.updatedAt = t }
func (e *PersistedEntry) SetDeletedAt(t *time.Time) { e.deletedAt = t }
func (e *PersistedEntry) SetCreatedAt(t time.Time)  { e.createdAt = t }
func (e *PersistedEntry) SetOwnerUsername(u string) { e.ownerUsername = u }
func (e *PersistedEntry) SetEntityName(name string) { e.entityName = name }
func (e *PersistedEntry) SetEntitySlug(slug string) { e.entitySlug = slug }

// Validate checks that the entry has the fields the cache schema requires.
func (e *PersistedEntry) Validate() error {
	if e.domain != "song" && e.domain != "playlist" {
		return fmt.Errorf("invalid domain: %q", e.domain)
	}
	if e.entityID == "" {
		return fmt.Errorf("entity id is required")
	}
	if e.ownerID == "" {
		return fmt.Errorf("owner id is required")
	}
	if e.userID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// Enriched converts the persisted entry back to an in-memory [EnrichedEntry].
func (e *PersistedEntry) Enriched() EnrichedEntry {
	var row Membership
	if e.domain == "playlist" {
		row = PlaylistLibraryRow{
			User:          e.userID,
			PlaylistID:    e.entityID,
			PlaylistOwner: e.ownerID,
			CreatedAt:     e.addedAt,
		}
	} else {
		row = SongLibraryRow{
			User:      e.userID,
			SongID:    e.entityID,
			SongOwner: e.ownerID,
			CreatedAt: e.addedAt,
		}
	}

	return EnrichedEntry{
		Row:           row,
		OwnerUsername: e.ownerUsername,
		EntityName:    e.entityName,
		EntitySlug:    e.entitySlug,
	}
}
