// Package models defines domain entities and persistence interfaces for the Tunelist library client.
//
// The package contains three categories of types:
//
// 1. Membership rows: records asserting that a user's library contains an entity
//   - [SongLibraryRow] : "user X has song Y (owned by Z) in their library"
//   - [PlaylistLibraryRow] : the playlist equivalent
//
// 2. Public metadata rows fetched for client-side enrichment
//   - [SongRow] / [PlaylistRow] : entity name, slug, visibility
//   - [ProfileRow] : owner usernames
//
// 3. Persistent entities: database-backed models with full lifecycle management
//   - [PersistedEntry] : locally cached enriched library entries
//
// Rows arrive as untyped JSON from batch queries and realtime events; the
// *FromMap guard functions narrow them before they enter application state.
// Rows that fail a guard are dropped by callers (logged, never fatal).
package models
