package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/averymorin/tunelist/internal/library"
	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
)

// DomainResult summarizes one domain's part of a refresh.
type DomainResult struct {
	Domain     string
	EntryCount int
	CacheErr   error // snapshot persistence failure, non-fatal
}

// RefreshResult contains all data from a full library refresh.
type RefreshResult struct {
	Domains []DomainResult
}

// TotalEntries sums entry counts across domains.
func (r *RefreshResult) TotalEntries() int {
	total := 0
	for _, d := range r.Domains {
		total += d.EntryCount
	}
	return total
}

// SnapshotCacher persists an authoritative domain snapshot to the local cache.
// This abstraction allows for easier testing and decoupling from the sqlite layer.
type SnapshotCacher interface {
	CacheSnapshot(domain string, entries []models.EnrichedEntry) error
}

// SyncEngine defines operations for syncing the remote library state.
type SyncEngine interface {
	// Refresh fetches and enriches every domain's library, replacing local
	// state wholesale and persisting snapshots to the cache.
	Refresh(ctx context.Context, progress chan<- ProgressUpdate) (*RefreshResult, error)

	// Watch opens realtime subscriptions feeding every domain's slice and
	// returns an idempotent stop function.
	Watch(ctx context.Context, progress chan<- ProgressUpdate) (func(), error)
}

// LibraryEngine implements SyncEngine over the library slices.
type LibraryEngine struct {
	session  services.SessionAPI
	realtime services.Realtime
	schema   string
	slices   []*library.Slice
	cache    SnapshotCacher
}

// NewLibraryEngine creates a new LibraryEngine with the provided slices.
// cache may be nil to skip local persistence; realtime may be nil when only
// Refresh is used.
func NewLibraryEngine(session services.SessionAPI, realtime services.Realtime, schema string, cache SnapshotCacher, libSlices ...*library.Slice) *LibraryEngine {
	return &LibraryEngine{
		session:  session,
		realtime: realtime,
		schema:   schema,
		slices:   libSlices,
		cache:    cache,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

// progressGate guards the progress channel handed to Watch. Live
// subscription callbacks keep firing until every channel is torn down, so
// the watcher closes the gate before running cleanups; sends after that
// point are dropped instead of hitting a channel the caller may have
// closed.
type progressGate struct {
	mu     sync.Mutex
	ch     chan<- ProgressUpdate
	closed bool
}

func newProgressGate(ch chan<- ProgressUpdate) *progressGate {
	return &progressGate{ch: ch}
}

// send forwards update without blocking. No-op once the gate is closed.
func (g *progressGate) send(update ProgressUpdate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.ch == nil {
		return
	}
	select {
	case g.ch <- update:
	default:
	}
}

// close stops all future sends. In-flight sends finish before close returns.
func (g *progressGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// Refresh fetches every domain's library and persists cache snapshots.
//
// The first fetch failure aborts the refresh; cache failures are recorded
// per domain and do not fail the operation, since local state is already
// consistent with the server.
func (e *LibraryEngine) Refresh(ctx context.Context, progress chan<- ProgressUpdate) (*RefreshResult, error) {
	if len(e.slices) == 0 {
		return nil, fmt.Errorf("%w: no library slices configured", shared.ErrServiceUnavailable)
	}

	result := &RefreshResult{}
	total := len(e.slices)

	for i, slice := range e.slices {
		domain := slice.Domain().Name
		e.sendProgress(progress, fetchLibraryUpdate(i+1, total, domain))

		if err := slice.Fetch(ctx); err != nil {
			return nil, fmt.Errorf("failed to fetch %s library: %w", domain, err)
		}

		entries := slice.Entries()
		e.sendProgress(progress, fetchedLibraryUpdate(i+1, total, domain, len(entries)))

		domainResult := DomainResult{Domain: domain, EntryCount: len(entries)}

		if e.cache != nil {
			e.sendProgress(progress, cacheSnapshotUpdate(i+1, total, domain, len(entries)))

			enriched := make([]models.EnrichedEntry, 0, len(entries))
			for _, id := range slice.IDs() {
				enriched = append(enriched, entries[id])
			}
			domainResult.CacheErr = e.cache.CacheSnapshot(domain, enriched)
		}

		result.Domains = append(result.Domains, domainResult)
	}

	return result, nil
}

// Watch opens membership and metadata subscriptions for every domain.
//
// Metadata subscriptions follow the library: when a slice's membership
// changes, its metadata channel is replaced with one filtered on the new id
// set. The returned stop function tears everything down and is idempotent.
func (e *LibraryEngine) Watch(ctx context.Context, progress chan<- ProgressUpdate) (func(), error) {
	if e.realtime == nil {
		return nil, fmt.Errorf("%w: realtime client not initialized", shared.ErrServiceUnavailable)
	}

	user, err := e.session.GetUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNoSession, err)
	}

	gate := newProgressGate(progress)

	var cleanups []func()
	stop := func() {
		// Silence live reporting first so no subscriber callback can
		// reach the progress channel after stop returns.
		gate.close()
		for _, fn := range cleanups {
			fn()
		}
	}

	total := len(e.slices)
	for i, slice := range e.slices {
		domain := slice.Domain().Name
		manager := library.NewManager(slice, e.realtime, e.schema, nil)
		cleanups = append(cleanups, manager.Close)

		gate.send(subscribeMembershipUpdate(i+1, total, domain))
		if _, err := manager.SubscribeMembership(ctx, user.ID); err != nil {
			stop()
			return nil, fmt.Errorf("failed to subscribe to %s library: %w", domain, err)
		}

		ids := slice.IDs()
		gate.send(subscribeMetadataUpdate(i+1, total, domain, len(ids)))
		if _, err := manager.SubscribeMetadata(ctx, ids); err != nil {
			stop()
			return nil, fmt.Errorf("failed to subscribe to %s metadata: %w", domain, err)
		}

		cleanups = append(cleanups, e.followMembership(ctx, slice, manager, gate, ids))
	}

	var once sync.Once
	return func() { once.Do(stop) }, nil
}

// followMembership re-subscribes the metadata channel whenever the slice's
// id set changes, and emits a live progress update per state change.
func (e *LibraryEngine) followMembership(ctx context.Context, slice *library.Slice, manager *library.Manager, gate *progressGate, initial []string) func() {
	domain := slice.Domain().Name

	var mu sync.Mutex
	last := initial

	return slice.Subscribe(func(st library.State) {
		gate.send(liveEventUpdate(domain, len(st.Entries)))

		ids := make([]string, 0, len(st.Entries))
		for id := range st.Entries {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		mu.Lock()
		changed := !slices.Equal(ids, last)
		if changed {
			last = ids
		}
		mu.Unlock()

		if !changed || len(ids) == 0 {
			return
		}

		if _, err := manager.SubscribeMetadata(ctx, ids); err != nil {
			gate.send(ProgressUpdate{
				Phase:   SubscribeMetadata,
				Message: fmt.Sprintf("metadata re-subscription failed for %s: %v", domain, err),
			})
		}
	})
}
