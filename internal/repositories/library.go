package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/shared"
)

// LibraryRepository implements models.Repository[*models.PersistedEntry]
// over the library_entries cache table.
//
// Entries are snapshots of the remote library, keyed by (domain, entity_id).
// Soft deletes keep removed entries around for debugging until the next
// snapshot replaces them.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Create inserts a new [models.PersistedEntry] with generated ID and sequence
func (r *LibraryRepository) Create(entry *models.PersistedEntry) error {
	sequence, err := NextSequence(r.db, "library_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	entry.SetID(id)
	entry.SetSequence(sequence)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO library_entries (id, sequence, domain, entity_id, owner_id, user_id, owner_username, entity_name, entity_slug, added_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		entry.Domain(),
		entry.EntityID(),
		entry.OwnerID(),
		entry.UserID(),
		entry.OwnerUsername(),
		entry.EntityName(),
		entry.EntitySlug(),
		entry.AddedAt(),
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert library entry: %w", err)
	}

	return nil
}

// Get retrieves an entry by ID, excluding soft-deleted entries
func (r *LibraryRepository) Get(id string) (*models.PersistedEntry, error) {
	query := selectColumns + `
		FROM library_entries
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByEntityID retrieves an entry by domain and remote entity id
func (r *LibraryRepository) GetByEntityID(domain, entityID string) (*models.PersistedEntry, error) {
	query := selectColumns + `
		FROM library_entries
		WHERE domain = ? AND entity_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, domain, entityID))
}

// Update modifies an existing entry's enrichment fields
func (r *LibraryRepository) Update(entry *models.PersistedEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	entry.SetUpdatedAt(now)

	query := `
		UPDATE library_entries
		SET owner_username = ?, entity_name = ?, entity_slug = ?, added_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		entry.OwnerUsername(),
		entry.EntityName(),
		entry.EntitySlug(),
		entry.AddedAt(),
		now,
		entry.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update library entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entry.ID())
	}

	return nil
}

// Delete soft-deletes an entry by ID
func (r *LibraryRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE library_entries
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete library entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}

	return nil
}

// List retrieves all entries matching the given criteria, excluding
// soft-deleted entries
func (r *LibraryRepository) List(criteria map[string]any) ([]*models.PersistedEntry, error) {
	query := selectColumns + `
		FROM library_entries
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if domain, ok := criteria["domain"].(string); ok && domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query library entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.PersistedEntry
	for rows.Next() {
		entry, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// ReplaceDomain replaces every entry for a domain with the given snapshot
// in one transaction. The previous rows are hard-deleted: a snapshot is
// authoritative for its domain.
func (r *LibraryRepository) ReplaceDomain(domain string, entries []*models.PersistedEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM library_entries WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("failed to clear domain %s: %w", domain, err)
	}

	insert := `
		INSERT INTO library_entries (id, sequence, domain, entity_id, owner_id, user_id, owner_username, entity_name, entity_slug, added_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, entry := range entries {
		sequence, err := nextSequenceTx(tx, "library_entries")
		if err != nil {
			return err
		}

		id := shared.GenerateID()
		entry.SetID(id)
		entry.SetSequence(sequence)

		if err := entry.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		_, err = tx.Exec(insert,
			id,
			sequence,
			entry.Domain(),
			entry.EntityID(),
			entry.OwnerID(),
			entry.UserID(),
			entry.OwnerUsername(),
			entry.EntityName(),
			entry.EntitySlug(),
			entry.AddedAt(),
			entry.CreatedAt(),
			entry.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert library entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// nextSequenceTx is NextSequence inside an existing transaction.
func nextSequenceTx(tx *sql.Tx, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

const selectColumns = `
	SELECT id, sequence, domain, entity_id, owner_id, user_id, owner_username, entity_name, entity_slug, added_at, created_at, updated_at, deleted_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *LibraryRepository) scanOne(row *sql.Row) (*models.PersistedEntry, error) {
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrEntryNotFound
	}
	return entry, err
}

func scanRow(rows *sql.Rows) (*models.PersistedEntry, error) {
	return scanEntry(rows)
}

func scanEntry(s rowScanner) (*models.PersistedEntry, error) {
	var (
		id            string
		sequence      int
		domain        string
		entityID      string
		ownerID       string
		userID        string
		ownerUsername sql.NullString
		entityName    sql.NullString
		entitySlug    sql.NullString
		addedAt       sql.NullString
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := s.Scan(&id, &sequence, &domain, &entityID, &ownerID, &userID, &ownerUsername, &entityName, &entitySlug, &addedAt, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan library entry: %w", err)
	}

	enriched := models.EnrichedEntry{
		OwnerUsername: ownerUsername.String,
		EntityName:    entityName.String,
		EntitySlug:    entitySlug.String,
	}
	if domain == "playlist" {
		enriched.Row = models.PlaylistLibraryRow{
			User:          userID,
			PlaylistID:    entityID,
			PlaylistOwner: ownerID,
			CreatedAt:     addedAt.String,
		}
	} else {
		enriched.Row = models.SongLibraryRow{
			User:      userID,
			SongID:    entityID,
			SongOwner: ownerID,
			CreatedAt: addedAt.String,
		}
	}

	entry := models.NewPersistedEntry(sequence, domain, enriched)
	entry.SetID(id)
	entry.SetCreatedAt(createdAt)
	entry.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		entry.SetDeletedAt(&deletedAt.Time)
	}

	return entry, nil
}
