package library

import (
	"fmt"

	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
)

// EventKind tags a decoded change event.
type EventKind int

const (
	KindInsert EventKind = iota
	KindUpdate
	KindDelete
)

func (k EventKind) String() string {
	switch k {
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	default:
		return ""
	}
}

// ChangeEvent is the single internal representation of a row change event.
// New carries the post-change row for inserts and updates; Old carries the
// pre-change row for deletes and may be partial (often only the key column).
type ChangeEvent struct {
	Kind EventKind
	New  map[string]any
	Old  map[string]any
}

// DecodeChangeEvent converts an accepted wire envelope into a [ChangeEvent].
//
// Two envelope shapes are accepted: the normalized shape
//
//	{"eventType": "INSERT", "new": {...}, "old": {...}}
//
// and the wrapped shape
//
//	{"data": {"type": "INSERT", "record": {...}, "old_record": {...}}}
//
// Anything else is rejected with [shared.ErrMalformedPayload].
func DecodeChangeEvent(payload services.Row) (ChangeEvent, error) {
	if payload == nil {
		return ChangeEvent{}, fmt.Errorf("%w: nil payload", shared.ErrMalformedPayload)
	}

	if kind, ok := payload["eventType"].(string); ok {
		newRow, _ := payload["new"].(map[string]any)
		oldRow, _ := payload["old"].(map[string]any)
		return buildEvent(kind, newRow, oldRow)
	}

	if data, ok := payload["data"].(map[string]any); ok {
		kind, ok := data["type"].(string)
		if !ok {
			return ChangeEvent{}, fmt.Errorf("%w: wrapped envelope missing type", shared.ErrMalformedPayload)
		}
		newRow, _ := data["record"].(map[string]any)
		oldRow, _ := data["old_record"].(map[string]any)
		return buildEvent(kind, newRow, oldRow)
	}

	return ChangeEvent{}, fmt.Errorf("%w: unrecognized envelope", shared.ErrMalformedPayload)
}

func buildEvent(kind string, newRow, oldRow map[string]any) (ChangeEvent, error) {
	switch kind {
	case "INSERT":
		return ChangeEvent{Kind: KindInsert, New: newRow, Old: oldRow}, nil
	case "UPDATE":
		return ChangeEvent{Kind: KindUpdate, New: newRow, Old: oldRow}, nil
	case "DELETE":
		return ChangeEvent{Kind: KindDelete, New: newRow, Old: oldRow}, nil
	default:
		return ChangeEvent{}, fmt.Errorf("%w: unknown event type %q", shared.ErrMalformedPayload, kind)
	}
}
