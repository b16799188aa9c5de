// Package library keeps a user's song and playlist libraries synchronized
// between local state and the hosted backend.
//
// A [Slice] holds the in-memory library for one entity domain (songs or
// playlists) as enriched entries keyed by entity id. It is populated by
// Fetch (batch read plus client-side enrichment joins), mutated
// optimistically by Add and Remove, and reconciled against server-pushed
// change events by HandleEvent and HandleMetaEvent. A [Manager] owns the
// realtime channels feeding those handlers, guaranteeing at most one live
// subscription per logical scope.
//
// Consistency model: eventual. No sequencing or versioning is applied
// between in-flight fetches, local mutations and realtime events; all merge
// operations are keyed upserts and keyed deletes, so duplicate or reordered
// deliveries converge. A failed remove is not rolled back; a realtime
// DELETE echo or the next fetch reconciles it.
package library
