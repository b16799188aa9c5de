package library

import (
	"context"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/services"
)

// Enrich joins owner usernames and entity metadata onto membership rows.
//
// Exactly two batched queries are issued regardless of row count: one over
// the domain's metadata table filtered by the deduplicated entity id set,
// one over profiles filtered by the owner id set. Rows without a match keep
// empty enrichment fields; a failed batch query fails the whole call.
func (s *Slice) Enrich(ctx context.Context, rows []models.Membership) ([]models.EnrichedEntry, error) {
	if len(rows) == 0 {
		return []models.EnrichedEntry{}, nil
	}

	entityIDs := dedupe(rows, models.Membership.EntityID)
	ownerIDs := dedupe(rows, models.Membership.OwnerID)

	metaRows, err := s.client.Select(ctx, services.SelectParams{
		Table:   s.domain.MetaTable,
		Columns: "id,name,slug",
		In:      map[string][]string{"id": entityIDs},
	})
	if err != nil {
		return nil, err
	}

	type meta struct{ name, slug string }
	metaByID := make(map[string]meta, len(metaRows))
	for _, m := range metaRows {
		id, name, slug, ok := s.domain.MetaFromMap(m)
		if !ok {
			s.logger.Warn("dropping malformed metadata row", "row", m)
			continue
		}
		metaByID[id] = meta{name: name, slug: slug}
	}

	usernames, err := s.usernames(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]models.EnrichedEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.EnrichedEntry{Row: row}
		if m, ok := metaByID[row.EntityID()]; ok {
			entry.EntityName = m.name
			entry.EntitySlug = m.slug
		}
		entry.OwnerUsername = usernames[row.OwnerID()]
		entries = append(entries, entry)
	}

	return entries, nil
}

// EnrichOne builds an enriched entry for a single row with an owner
// username lookup. Lookup failures are tolerated: realtime reconciliation
// must not drop a valid membership because enrichment was unavailable.
func (s *Slice) EnrichOne(ctx context.Context, row models.Membership) models.EnrichedEntry {
	entry := models.EnrichedEntry{Row: row}

	usernames, err := s.usernames(ctx, []string{row.OwnerID()})
	if err != nil {
		s.logger.Warn("username enrichment failed", "owner", row.OwnerID(), "error", err)
		return entry
	}

	entry.OwnerUsername = usernames[row.OwnerID()]
	return entry
}

// usernames resolves owner ids to usernames in one batched query.
func (s *Slice) usernames(ctx context.Context, ownerIDs []string) (map[string]string, error) {
	if len(ownerIDs) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.client.Select(ctx, services.SelectParams{
		Table:   "profiles",
		Columns: "id,username",
		In:      map[string][]string{"id": ownerIDs},
	})
	if err != nil {
		return nil, err
	}

	usernames := make(map[string]string, len(rows))
	for _, m := range rows {
		profile, ok := models.ProfileRowFromMap(m)
		if !ok {
			s.logger.Warn("dropping malformed profile row", "row", m)
			continue
		}
		usernames[profile.ID] = profile.Username
	}

	return usernames, nil
}

// dedupe collects the distinct values of key over rows, preserving first-seen order.
func dedupe(rows []models.Membership, key func(models.Membership) string) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		v := key(row)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
