// package services implements clients for the hosted Tunelist backend.
//
// The backend exposes three surfaces consumed here: a PostgREST-style REST
// API for table reads and writes ([Client]), a token endpoint for sessions
// ([AuthClient]), and a websocket realtime API pushing row change events
// ([RealtimeClient]).
package services

import (
	"context"
)

// Row is a decoded JSON object returned by table queries and realtime events.
// Rows are narrowed into typed structs by the guards in internal/models
// before they enter application state.
type Row = map[string]any

// SelectParams describes a table read: column projection plus optional
// equality and membership filters.
type SelectParams struct {
	Table   string
	Columns string              // comma-separated column list, defaults to "*"
	Eq      map[string]string   // column = value filters
	In      map[string][]string // column IN (values...) filters
	Limit   int                 // 0 means no limit
}

// Querier executes table-scoped reads against the backend.
type Querier interface {
	// Select performs a batch read and returns the matching rows.
	Select(ctx context.Context, params SelectParams) ([]Row, error)
}

// Mutator executes table-scoped writes against the backend.
type Mutator interface {
	// Insert writes payload to the table and returns the affected rows.
	Insert(ctx context.Context, table string, payload any) ([]Row, error)

	// Upsert writes payload, merging duplicates on the table's conflict target.
	Upsert(ctx context.Context, table string, payload any) ([]Row, error)

	// Delete removes the rows matching all eq filters.
	Delete(ctx context.Context, table string, eq map[string]string) error
}

// SessionAPI exposes the authenticated user.
type SessionAPI interface {
	// GetUser returns the user the current session belongs to.
	GetUser(ctx context.Context) (*User, error)
}

// SubscriptionStatus reports realtime channel lifecycle transitions to
// status callbacks.
type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "SUBSCRIBED"
	StatusChannelError SubscriptionStatus = "CHANNEL_ERROR"
	StatusClosed       SubscriptionStatus = "CLOSED"
)

// ChangeConfig scopes a realtime binding to a table and optional row filter.
type ChangeConfig struct {
	Event  string // "INSERT", "UPDATE", "DELETE" or "*"
	Schema string
	Table  string
	Filter string // optional server-side row filter, e.g. `user_id=eq.abc`
}

// ChangeHandler receives the raw payload of a row change event.
type ChangeHandler func(payload Row)

// Channel is a realtime subscription to row change events, scoped by topic.
//
// Bindings are registered with On before Subscribe opens the channel.
type Channel interface {
	// Topic returns the channel's unique topic name.
	Topic() string

	// On registers a handler for events matching cfg. Returns the channel
	// for chaining.
	On(cfg ChangeConfig, handler ChangeHandler) Channel

	// Subscribe opens the channel. status is invoked on lifecycle
	// transitions and may be nil.
	Subscribe(ctx context.Context, status func(SubscriptionStatus, error)) error
}

// Realtime manages realtime channels over a shared websocket connection.
type Realtime interface {
	// Channel returns the channel for topic, creating it if needed.
	Channel(topic string) Channel

	// RemoveChannel closes the channel and unregisters it. Idempotent.
	RemoveChannel(ch Channel)
}

// Backend bundles the surfaces the library layer consumes.
type Backend interface {
	Querier
	Mutator
	SessionAPI
	Realtime
}
