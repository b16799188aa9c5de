package main

import (
	"context"
	"fmt"
	"os"

	"github.com/averymorin/tunelist/internal/formatter"
	"github.com/averymorin/tunelist/internal/library"
	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/urfave/cli/v3"
)

// SongsList lists the entries in the song library.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	return r.libraryList(ctx, cmd, r.songs)
}

// SongsAdd adds a song to the library.
func (r *Runner) SongsAdd(ctx context.Context, cmd *cli.Command) error {
	return r.libraryAdd(ctx, cmd, r.songs)
}

// SongsRemove removes a song from the library.
func (r *Runner) SongsRemove(ctx context.Context, cmd *cli.Command) error {
	return r.libraryRemove(ctx, cmd, r.songs)
}

// SongsExport exports the song library to a file.
func (r *Runner) SongsExport(ctx context.Context, cmd *cli.Command) error {
	return r.libraryExport(ctx, cmd, r.songs)
}

// PlaylistsList lists the entries in the playlist library.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	return r.libraryList(ctx, cmd, r.playlists)
}

// PlaylistsAdd adds a playlist to the library.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	return r.libraryAdd(ctx, cmd, r.playlists)
}

// PlaylistsRemove removes a playlist from the library.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	return r.libraryRemove(ctx, cmd, r.playlists)
}

// PlaylistsExport exports the playlist library to a file.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	return r.libraryExport(ctx, cmd, r.playlists)
}

// sortedEntries returns the slice's entries in id order.
func sortedEntries(slice *library.Slice) []models.EnrichedEntry {
	all := slice.Entries()
	entries := make([]models.EnrichedEntry, 0, len(all))
	for _, id := range slice.IDs() {
		entries = append(entries, all[id])
	}
	return entries
}

func (r *Runner) libraryList(ctx context.Context, cmd *cli.Command, slice *library.Slice) error {
	if slice == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrNoClient)
	}

	r.logger.Infof("fetching %v library", slice.Domain().Name)

	if err := slice.Fetch(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	entries := sortedEntries(slice)

	if cmd.Bool("json") {
		data, err := formatter.ToEntriesJSON(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		if _, err := r.output.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	r.writePlain("Found %d %s library entries:\n\n", len(entries), slice.Domain().Name)
	for i, e := range entries {
		name := e.EntityName
		if name == "" {
			name = e.Row.EntityID()
		}
		r.writePlain("%d. %s\n", i+1, name)
		if e.OwnerUsername != "" {
			r.writePlain("   Owner: %s\n", e.OwnerUsername)
		}
		r.writePlain("   ID: %s\n", e.Row.EntityID())
		if e.EntitySlug != "" {
			r.writePlain("   Slug: %s\n", e.EntitySlug)
		}
		if e.Row.AddedAt() != "" {
			r.writePlain("   Added: %s\n", e.Row.AddedAt())
		}
		r.writePlain("\n")
	}

	return nil
}

func (r *Runner) libraryAdd(ctx context.Context, cmd *cli.Command, slice *library.Slice) error {
	entityID := cmd.String("id")
	ownerID := cmd.String("owner")

	if slice == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrNoClient)
	}

	if err := slice.Fetch(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if slice.IsMember(entityID) {
		return r.writePlain("Already in library: %s\n", entityID)
	}

	r.logger.Infof("adding %v to %v library", entityID, slice.Domain().Name)

	if err := slice.Add(ctx, library.AddRequest{EntityID: entityID, OwnerID: ownerID}); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	name := entityID
	if entry, ok := slice.Entries()[entityID]; ok && entry.EntityName != "" {
		name = entry.EntityName
	}

	return r.writePlain("✓ Added to library: %s\n", name)
}

func (r *Runner) libraryRemove(ctx context.Context, cmd *cli.Command, slice *library.Slice) error {
	entityID := cmd.String("id")

	if slice == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrNoClient)
	}

	if err := slice.Fetch(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !slice.IsMember(entityID) {
		return r.writePlain("Not in library: %s\n", entityID)
	}

	r.logger.Infof("removing %v from %v library", entityID, slice.Domain().Name)

	if err := slice.Remove(ctx, entityID); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writePlain("✓ Removed from library: %s\n", entityID)
}

func (r *Runner) libraryExport(ctx context.Context, cmd *cli.Command, slice *library.Slice) error {
	format := cmd.String("format")
	outputFile := cmd.String("output")

	if slice == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrNoClient)
	}

	if err := slice.Fetch(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	entries := sortedEntries(slice)
	domain := slice.Domain().Name

	r.logger.Infof("exporting %v library as %v", domain, format)

	var path string
	var err error

	switch format {
	case "csv":
		path, err = formatter.WriteCSVExport(domain, entries, outputFile)
	case "markdown", "md":
		path, err = formatter.WriteMarkdownExport(domain, entries, outputFile)
	case "json":
		var data []byte
		if data, err = formatter.ToEntriesJSON(entries); err == nil {
			path = outputFile
			if path == "" {
				path = fmt.Sprintf("%s_library.json", domain)
			}
			err = os.WriteFile(path, data, 0644)
		}
	case "text":
		var data []byte
		if data, err = formatter.ExportToText(domain, entries); err != nil {
			return fmt.Errorf("failed to export library: %w", err)
		}
		if _, err = r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	if err != nil {
		return fmt.Errorf("failed to export library: %w", err)
	}

	return r.writePlain("✓ Exported %d entries to %s\n", len(entries), path)
}
