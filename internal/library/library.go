package library

import (
	"context"
	"fmt"
	"sort"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/charmbracelet/log"
)

// State is a library slice's observable state.
//
// Entries is keyed by entity id and always replaced wholesale: handlers
// build a new map rather than mutating the old one.
type State struct {
	Entries   map[string]models.EnrichedEntry
	IsLoading bool
	Error     string
}

// Domain parameterizes a [Slice] for one entity type. The song and playlist
// libraries share identical mechanics and differ only in these names.
type Domain struct {
	Name         string // "song" or "playlist"
	Table        string // membership table, e.g. song_library
	IDField      string // membership column holding the entity id
	OwnerIDField string // membership column holding the entity owner id
	MetaTable    string // public metadata table, e.g. songs
	RowFromMap   func(map[string]any) (models.Membership, bool)
	MetaFromMap  func(map[string]any) (id, name, slug string, ok bool)
}

// SongDomain configures a slice over the song_library table.
var SongDomain = Domain{
	Name:         "song",
	Table:        "song_library",
	IDField:      "song_id",
	OwnerIDField: "song_owner_id",
	MetaTable:    "songs",
	RowFromMap: func(m map[string]any) (models.Membership, bool) {
		return models.SongLibraryRowFromMap(m)
	},
	MetaFromMap: func(m map[string]any) (string, string, string, bool) {
		row, ok := models.SongRowFromMap(m)
		return row.ID, row.Name, row.Slug, ok
	},
}

// PlaylistDomain configures a slice over the playlist_library table.
var PlaylistDomain = Domain{
	Name:         "playlist",
	Table:        "playlist_library",
	IDField:      "playlist_id",
	OwnerIDField: "playlist_owner_id",
	MetaTable:    "playlists",
	RowFromMap: func(m map[string]any) (models.Membership, bool) {
		return models.PlaylistLibraryRowFromMap(m)
	},
	MetaFromMap: func(m map[string]any) (string, string, string, bool) {
		row, ok := models.PlaylistRowFromMap(m)
		return row.ID, row.Name, row.Slug, ok
	},
}

// backend is the remote surface a slice needs: reads, writes and the
// session user.
type backend interface {
	services.Querier
	services.Mutator
	services.SessionAPI
}

// Slice is the library state slice for one entity domain.
//
// All mutations go through the slice's internal store, and every state
// value handed out is a fresh map, so callers never share mutable state.
type Slice struct {
	domain Domain
	client backend
	store  *Store[State]
	logger *log.Logger
}

// NewSlice creates an empty slice for domain backed by client.
func NewSlice(domain Domain, client backend, logger *log.Logger) *Slice {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Slice{
		domain: domain,
		client: client,
		store:  NewStore(State{Entries: map[string]models.EnrichedEntry{}}),
		logger: logger.With("library", domain.Name),
	}
}

// Domain returns the slice's domain configuration.
func (s *Slice) Domain() Domain { return s.domain }

// State returns the current slice state.
func (s *Slice) State() State { return s.store.GetState() }

// Err returns the current error message, empty when healthy.
func (s *Slice) Err() string { return s.store.GetState().Error }

// Subscribe registers fn to run after every state change.
func (s *Slice) Subscribe(fn func(State)) func() { return s.store.Subscribe(fn) }

// Close disposes the slice; late fetch or event results are discarded.
func (s *Slice) Close() { s.store.Close() }

// Entries returns a copy of the current entries map.
func (s *Slice) Entries() map[string]models.EnrichedEntry {
	state := s.store.GetState()
	entries := make(map[string]models.EnrichedEntry, len(state.Entries))
	for k, v := range state.Entries {
		entries[k] = v
	}
	return entries
}

// IsMember reports whether the entity id is currently in the library.
func (s *Slice) IsMember(id string) bool {
	_, ok := s.store.GetState().Entries[id]
	return ok
}

// IDs returns the sorted entity ids currently in the library.
func (s *Slice) IDs() []string {
	state := s.store.GetState()
	ids := make([]string, 0, len(state.Entries))
	for id := range state.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fetch reads the user's membership rows, enriches them, and replaces the
// entries wholesale. On failure the error message is set and existing
// entries are left untouched; the loading flag is always cleared.
func (s *Slice) Fetch(ctx context.Context) error {
	s.store.SetState(func(st State) State {
		st.IsLoading = true
		st.Error = ""
		return st
	})

	entries, err := s.fetchEntries(ctx)

	s.store.SetState(func(st State) State {
		st.IsLoading = false
		if err != nil {
			st.Error = err.Error()
			return st
		}
		st.Entries = entries
		return st
	})

	return err
}

func (s *Slice) fetchEntries(ctx context.Context) (map[string]models.EnrichedEntry, error) {
	if s.client == nil {
		return nil, shared.ErrNoClient
	}

	user, err := s.client.GetUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNoSession, err)
	}

	raw, err := s.client.Select(ctx, services.SelectParams{
		Table: s.domain.Table,
		Eq:    map[string]string{"user_id": user.ID},
	})
	if err != nil {
		return nil, err
	}

	rows := make([]models.Membership, 0, len(raw))
	for _, m := range raw {
		row, ok := s.domain.RowFromMap(m)
		if !ok {
			s.logger.Warn("dropping malformed membership row", "row", m)
			continue
		}
		rows = append(rows, row)
	}

	enriched, err := s.Enrich(ctx, rows)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]models.EnrichedEntry, len(enriched))
	for _, e := range enriched {
		entries[e.Row.EntityID()] = e
	}
	return entries, nil
}

// AddRequest identifies the entity to add to the library.
type AddRequest struct {
	EntityID string
	OwnerID  string
}

// Add puts an entity in the user's library. Idempotent: adding a current
// member logs a warning and succeeds. The entry appears in local state only
// after the server confirms the insert.
func (s *Slice) Add(ctx context.Context, req AddRequest) error {
	if req.EntityID == "" {
		return fmt.Errorf("%w: entity id is required", shared.ErrInvalidArgument)
	}

	if s.IsMember(req.EntityID) {
		s.logger.Warn("entity already in library", "id", req.EntityID)
		return nil
	}

	if s.client == nil {
		return shared.ErrNoClient
	}

	user, err := s.client.GetUser(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", shared.ErrNoSession, err))
	}

	payload := map[string]string{
		"user_id":             user.ID,
		s.domain.IDField:      req.EntityID,
		s.domain.OwnerIDField: req.OwnerID,
	}

	returned, err := s.client.Insert(ctx, s.domain.Table, payload)
	if err != nil {
		return s.fail(err)
	}

	var row models.Membership
	if len(returned) > 0 {
		if r, ok := s.domain.RowFromMap(returned[0]); ok {
			row = r
		}
	}
	if row == nil {
		// Server omitted the representation; reconstruct from the request.
		r, ok := s.domain.RowFromMap(map[string]any{
			"user_id":             user.ID,
			s.domain.IDField:      req.EntityID,
			s.domain.OwnerIDField: req.OwnerID,
		})
		if !ok {
			return s.fail(fmt.Errorf("%w: insert returned no usable row", shared.ErrInvalidData))
		}
		row = r
	}

	entry := s.EnrichOne(ctx, row)

	s.store.SetState(func(st State) State {
		st.Entries = upsertEntry(st.Entries, entry)
		st.Error = ""
		return st
	})

	return nil
}

// Remove takes an entity out of the user's library. The local entry is
// removed optimistically before the server call; a failed call sets the
// error but does not restore the entry. A realtime DELETE echo or the next
// Fetch reconciles.
func (s *Slice) Remove(ctx context.Context, entityID string) error {
	if !s.IsMember(entityID) {
		s.logger.Warn("entity not in library", "id", entityID)
		return nil
	}

	if s.client == nil {
		return shared.ErrNoClient
	}

	s.store.SetState(func(st State) State {
		st.Entries = deleteEntry(st.Entries, entityID)
		return st
	})

	user, err := s.client.GetUser(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", shared.ErrNoSession, err))
	}

	err = s.client.Delete(ctx, s.domain.Table, map[string]string{
		"user_id":        user.ID,
		s.domain.IDField: entityID,
	})
	if err != nil {
		return s.fail(err)
	}

	return nil
}

// fail records err on the slice and returns it.
func (s *Slice) fail(err error) error {
	s.store.SetState(func(st State) State {
		st.Error = err.Error()
		return st
	})
	return err
}

// upsertEntry returns a new map with entry merged in.
func upsertEntry(entries map[string]models.EnrichedEntry, entry models.EnrichedEntry) map[string]models.EnrichedEntry {
	next := make(map[string]models.EnrichedEntry, len(entries)+1)
	for k, v := range entries {
		next[k] = v
	}
	next[entry.Row.EntityID()] = entry
	return next
}

// deleteEntry returns a new map without the given key.
func deleteEntry(entries map[string]models.EnrichedEntry, id string) map[string]models.EnrichedEntry {
	next := make(map[string]models.EnrichedEntry, len(entries))
	for k, v := range entries {
		if k != id {
			next[k] = v
		}
	}
	return next
}
