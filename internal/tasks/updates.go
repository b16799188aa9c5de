package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	CacheSnapshot
	SubscribeMembership
	SubscribeMetadata
	LiveEvent
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case CacheSnapshot:
		return "cache_snapshot"
	case SubscribeMembership:
		return "subscribe_membership"
	case SubscribeMetadata:
		return "subscribe_metadata"
	case LiveEvent:
		return "live_event"
	default:
		return ""
	}
}

func fetchLibraryUpdate(step, total int, domain string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s library...", step, total, domain),
	}
}

func fetchedLibraryUpdate(step, total int, domain string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s library (%d entries)", step, total, domain, count),
		Data:    count,
	}
}

func cacheSnapshotUpdate(step, total int, domain string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheSnapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Caching %s snapshot (%d entries)...", step, total, domain, count),
	}
}

func subscribeMembershipUpdate(step, total int, domain string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubscribeMembership,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Subscribing to %s library changes...", step, total, domain),
	}
}

func subscribeMetadataUpdate(step, total int, domain string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubscribeMetadata,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Subscribing to %d %s metadata rows...", step, total, count, domain),
	}
}

func liveEventUpdate(domain string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LiveEvent,
		Message: fmt.Sprintf("%s library changed (%d entries)", domain, count),
		Data:    count,
	}
}
