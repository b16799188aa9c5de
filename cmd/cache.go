package main

import (
	"context"
	"fmt"
	"time"

	"github.com/averymorin/tunelist/internal/formatter"
	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/repositories"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/averymorin/tunelist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CacheShow lists locally cached library entries for one domain.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	domain := cmd.String("domain")
	if domain != "song" && domain != "playlist" {
		return fmt.Errorf("%w: domain must be song or playlist", shared.ErrInvalidArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewLibraryRepository(db)
	entries, err := repo.List(map[string]any{"domain": domain})
	if err != nil {
		return fmt.Errorf("failed to list cached entries: %w", err)
	}

	if cmd.Bool("json") {
		enriched := make([]models.EnrichedEntry, 0, len(entries))
		for _, e := range entries {
			enriched = append(enriched, e.Enriched())
		}
		data, err := formatter.ToEntriesJSON(enriched)
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		if _, err := r.output.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	r.writePlain("Cached %s library entries: %d\n\n", domain, len(entries))
	for i, e := range entries {
		name := e.EntityName()
		if name == "" {
			name = e.EntityID()
		}
		r.writePlain("%d. %s\n", i+1, name)
		if e.OwnerUsername() != "" {
			r.writePlain("   Owner: %s\n", e.OwnerUsername())
		}
		r.writePlain("   ID: %s\n", e.EntityID())
	}

	return nil
}

// CacheStatus reports the latest snapshot for each domain.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	snapshots := repositories.NewSnapshotRepository(db)

	for _, domain := range []string{"song", "playlist"} {
		snap, err := snapshots.Latest(domain)
		if err != nil {
			return fmt.Errorf("failed to read snapshot status: %w", err)
		}
		if snap == nil {
			r.writePlain("%s: no snapshot\n", domain)
			continue
		}
		r.writePlain("%s: %d entries at %s\n", domain, snap.EntryCount, snap.TakenAt.Format(time.RFC3339))
	}

	return nil
}

// CacheRefresh fetches both libraries from the backend and snapshots them locally.
func (r *Runner) CacheRefresh(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.buildEngine(db)
	if err != nil {
		return err
	}

	r.logger.Info("refreshing library snapshot")

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.Refresh(ctx, progress)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlainln("✓ Refresh complete: %d entries cached", result.TotalEntries())
	for _, d := range result.Domains {
		if d.CacheErr != nil {
			r.writePlain("  %s: %d entries (cache error: %v)\n", d.Domain, d.EntryCount, d.CacheErr)
		} else {
			r.writePlain("  %s: %d entries\n", d.Domain, d.EntryCount)
		}
	}

	return nil
}
