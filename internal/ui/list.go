package ui

import (
	"fmt"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = entryItem{}

// entryItem wraps [models.EnrichedEntry] to implement [list.Item].
type entryItem struct {
	entry models.EnrichedEntry
}

func (i entryItem) FilterValue() string { return i.Title() }

func (i entryItem) Title() string {
	if i.entry.EntityName != "" {
		return i.entry.EntityName
	}
	return i.entry.Row.EntityID()
}

func (i entryItem) Description() string {
	desc := "unknown owner"
	if i.entry.OwnerUsername != "" {
		desc = fmt.Sprintf("by %s", i.entry.OwnerUsername)
	}
	if i.entry.EntitySlug != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.EntitySlug)
	}
	return desc
}
