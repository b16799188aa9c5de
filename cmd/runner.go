package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/averymorin/tunelist/internal/library"
	"github.com/averymorin/tunelist/internal/repositories"
	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/averymorin/tunelist/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// backendAPI is the remote surface the library commands consume.
type backendAPI interface {
	services.Querier
	services.Mutator
	services.SessionAPI
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	auth       *services.AuthClient
	backend    backendAPI
	realtime   services.Realtime
	songs      *library.Slice
	playlists  *library.Slice
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Auth       *services.AuthClient
	Backend    backendAPI
	Realtime   services.Realtime
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	var songs, playlists *library.Slice
	if opts.Backend != nil {
		songs = library.NewSlice(library.SongDomain, opts.Backend, opts.Logger)
		playlists = library.NewSlice(library.PlaylistDomain, opts.Backend, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		auth:       opts.Auth,
		backend:    opts.Backend,
		realtime:   opts.Realtime,
		songs:      songs,
		playlists:  playlists,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger (used to redirect logs to a file while the TUI owns the terminal).
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, cacheCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the local snapshot database from config.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// buildEngine assembles a sync engine backed by the local snapshot cache.
func (r *Runner) buildEngine(db *sql.DB) (tasks.SyncEngine, error) {
	if r.backend == nil {
		return nil, fmt.Errorf("%w: backend client not initialized", shared.ErrNoClient)
	}
	if r.realtime == nil {
		return nil, fmt.Errorf("%w: realtime client not initialized", shared.ErrServiceUnavailable)
	}

	writer := repositories.NewSnapshotWriter(
		repositories.NewLibraryRepository(db),
		repositories.NewSnapshotRepository(db),
	)
	cache := repositories.NewSnapshotCacheAdapter(writer)

	return tasks.NewLibraryEngine(r.backend, r.realtime, r.config.Backend.Schema, cache, r.songs, r.playlists), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
