package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/charmbracelet/log"
)

// maxFilterIDs caps how many entity ids a metadata subscription filter may
// carry. Libraries larger than the cap are only live-updated for the first
// maxFilterIDs entities until the next full fetch; this is a policy
// constant, not a backend limit.
const maxFilterIDs = 100

// Manager owns the realtime channels feeding a slice, guaranteeing at most
// one live subscription per logical scope (membership changes, metadata
// changes). Re-subscribing a scope closes the superseded channel; the
// slice's idempotent merges absorb any overlapping deliveries during the
// transition.
type Manager struct {
	slice    *Slice
	realtime services.Realtime
	schema   string
	logger   *log.Logger

	mu       sync.Mutex
	memberCh services.Channel
	metaCh   services.Channel
	closed   bool
}

// NewManager creates a subscription manager feeding slice from realtime.
func NewManager(slice *Slice, realtime services.Realtime, schema string, logger *log.Logger) *Manager {
	if schema == "" {
		schema = "public"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Manager{
		slice:    slice,
		realtime: realtime,
		schema:   schema,
		logger:   logger.With("library", slice.Domain().Name),
	}
}

// SubscribeMembership opens the channel delivering the user's membership
// row changes. A previous membership subscription is closed first. The
// returned cleanup is idempotent.
func (m *Manager) SubscribeMembership(ctx context.Context, userID string) (func(), error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrInvalidArgument)
	}

	domain := m.slice.Domain()
	topic := fmt.Sprintf("realtime:%s:%s", domain.Table, userID)

	ch := m.realtime.Channel(topic)
	ch.On(services.ChangeConfig{
		Event:  "*",
		Schema: m.schema,
		Table:  domain.Table,
		Filter: "user_id=eq." + userID,
	}, func(payload services.Row) {
		m.slice.HandleEvent(ctx, payload)
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, shared.ErrChannelClosed
	}
	prev := m.memberCh
	m.memberCh = ch
	m.mu.Unlock()

	if prev != nil {
		m.realtime.RemoveChannel(prev)
	}

	if err := ch.Subscribe(ctx, m.statusLogger(topic)); err != nil {
		m.clearChannel(&m.memberCh, ch)
		m.realtime.RemoveChannel(ch)
		return nil, err
	}

	return m.cleanupFor(&m.memberCh, ch), nil
}

// SubscribeMetadata opens the channel delivering metadata changes for the
// given entity ids, closing any previous metadata subscription first. Ids
// beyond maxFilterIDs are dropped from the filter (logged); they are
// reconciled by the next full fetch.
func (m *Manager) SubscribeMetadata(ctx context.Context, ids []string) (func(), error) {
	if len(ids) == 0 {
		return func() {}, nil
	}

	if len(ids) > maxFilterIDs {
		m.logger.Warn("metadata subscription truncated", "total", len(ids), "cap", maxFilterIDs)
		ids = ids[:maxFilterIDs]
	}

	domain := m.slice.Domain()
	topic := fmt.Sprintf("realtime:%s:%s", domain.MetaTable, shared.GenerateID())

	ch := m.realtime.Channel(topic)
	ch.On(services.ChangeConfig{
		Event:  "*",
		Schema: m.schema,
		Table:  domain.MetaTable,
		Filter: fmt.Sprintf("id=in.(%s)", services.QuoteList(ids)),
	}, func(payload services.Row) {
		m.slice.HandleMetaEvent(ctx, payload)
	})

	// Close the superseded scope before the new one opens; duplicate
	// deliveries across the seam are absorbed by keyed upserts.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, shared.ErrChannelClosed
	}
	prev := m.metaCh
	m.metaCh = ch
	m.mu.Unlock()

	if prev != nil {
		m.realtime.RemoveChannel(prev)
	}

	if err := ch.Subscribe(ctx, m.statusLogger(topic)); err != nil {
		m.clearChannel(&m.metaCh, ch)
		m.realtime.RemoveChannel(ch)
		return nil, err
	}

	return m.cleanupFor(&m.metaCh, ch), nil
}

// Close tears down every live subscription. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	member := m.memberCh
	meta := m.metaCh
	m.memberCh = nil
	m.metaCh = nil
	m.mu.Unlock()

	if member != nil {
		m.realtime.RemoveChannel(member)
	}
	if meta != nil {
		m.realtime.RemoveChannel(meta)
	}
}

// cleanupFor returns an idempotent cleanup that removes ch only while it is
// still the live channel in slot.
func (m *Manager) cleanupFor(slot *services.Channel, ch services.Channel) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.clearChannel(slot, ch)
			m.realtime.RemoveChannel(ch)
		})
	}
}

// clearChannel empties slot if it still holds ch.
func (m *Manager) clearChannel(slot *services.Channel, ch services.Channel) {
	m.mu.Lock()
	if *slot == ch {
		*slot = nil
	}
	m.mu.Unlock()
}

// statusLogger logs channel lifecycle transitions.
func (m *Manager) statusLogger(topic string) func(services.SubscriptionStatus, error) {
	return func(status services.SubscriptionStatus, err error) {
		if err != nil {
			m.logger.Warn("subscription status", "topic", topic, "status", status, "error", err)
			return
		}
		m.logger.Debug("subscription status", "topic", topic, "status", status)
	}
}
