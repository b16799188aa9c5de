package library

import (
	"context"

	"github.com/averymorin/tunelist/internal/services"
)

// HandleEvent reconciles a realtime membership change event into the slice.
//
// Malformed payloads and rows failing validation are logged and dropped;
// one bad event must never disturb existing entries or the subscription.
// Merges are keyed upserts and keyed deletes with last-write-wins
// semantics, so duplicate deliveries across subscription transitions are
// absorbed.
func (s *Slice) HandleEvent(ctx context.Context, payload services.Row) {
	ev, err := DecodeChangeEvent(payload)
	if err != nil {
		s.logger.Warn("dropping realtime event", "error", err)
		return
	}

	switch ev.Kind {
	case KindInsert, KindUpdate:
		row, ok := s.domain.RowFromMap(ev.New)
		if !ok {
			s.logger.Warn("dropping invalid membership row from realtime event", "kind", ev.Kind.String(), "row", ev.New)
			return
		}

		entry := s.EnrichOne(ctx, row)
		s.store.SetState(func(st State) State {
			st.Entries = upsertEntry(st.Entries, entry)
			return st
		})

	case KindDelete:
		// The old row may be partial; only the key column is required.
		id, ok := ev.Old[s.domain.IDField].(string)
		if !ok || id == "" {
			s.logger.Warn("dropping DELETE event without entity id", "old", ev.Old)
			return
		}

		s.store.SetState(func(st State) State {
			st.Entries = deleteEntry(st.Entries, id)
			return st
		})
	}
}

// HandleMetaEvent reconciles a metadata change on a referenced entity
// (name or slug edits on the songs/playlists tables) into the matching
// entry. Events for entities not in the library are ignored; metadata
// deletes leave the membership entry in place.
func (s *Slice) HandleMetaEvent(ctx context.Context, payload services.Row) {
	ev, err := DecodeChangeEvent(payload)
	if err != nil {
		s.logger.Warn("dropping realtime metadata event", "error", err)
		return
	}

	if ev.Kind == KindDelete {
		return
	}

	id, name, slug, ok := s.domain.MetaFromMap(ev.New)
	if !ok {
		s.logger.Warn("dropping invalid metadata row from realtime event", "row", ev.New)
		return
	}

	s.store.SetState(func(st State) State {
		entry, present := st.Entries[id]
		if !present {
			return st
		}

		entry.EntityName = name
		entry.EntitySlug = slug
		st.Entries = upsertEntry(st.Entries, entry)
		return st
	})
}
