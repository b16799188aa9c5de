// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the local snapshot database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the backend session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password, or via the hosted login page",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "email",
						Usage: "Account email (falls back to auth.email in config.toml)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Account password (prompted when omitted)",
					},
					&cli.BoolFlag{
						Name:  "browser",
						Usage: "Sign in through the hosted login page in a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the saved session",
				Action: r.AuthLogout,
			},
			{
				Name:  "whoami",
				Usage: "Show the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.AuthWhoami,
			},
		},
	}
}

func libraryListFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
	}
}

func libraryExportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format (csv, markdown, json, text)",
			Value:   "csv",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path",
		},
	}
}

func libraryAddFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Entity ID to add",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "owner",
			Usage:    "Entity owner ID",
			Required: true,
		},
	}
}

func libraryRemoveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Entity ID to remove",
			Required: true,
		},
	}
}

// libraryCommand handles song and playlist library operations
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage your song and playlist libraries",
		Commands: []*cli.Command{
			{
				Name:  "songs",
				Usage: "Song library operations",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List songs in your library", Flags: libraryListFlags(), Action: r.SongsList},
					{Name: "add", Usage: "Add a song to your library", Flags: libraryAddFlags(), Action: r.SongsAdd},
					{Name: "remove", Usage: "Remove a song from your library", Flags: libraryRemoveFlags(), Action: r.SongsRemove},
					{Name: "export", Usage: "Export your song library to a file", Flags: libraryExportFlags(), Action: r.SongsExport},
				},
			},
			{
				Name:  "playlists",
				Usage: "Playlist library operations",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List playlists in your library", Flags: libraryListFlags(), Action: r.PlaylistsList},
					{Name: "add", Usage: "Add a playlist to your library", Flags: libraryAddFlags(), Action: r.PlaylistsAdd},
					{Name: "remove", Usage: "Remove a playlist from your library", Flags: libraryRemoveFlags(), Action: r.PlaylistsRemove},
					{Name: "export", Usage: "Export your playlist library to a file", Flags: libraryExportFlags(), Action: r.PlaylistsExport},
				},
			},
		},
	}
}

// cacheCommand handles the local library snapshot cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and refresh the local library snapshot",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List locally cached library entries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "domain",
						Aliases: []string{"d"},
						Usage:   "Library domain (song or playlist)",
						Value:   "song",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheShow,
			},
			{
				Name:   "status",
				Usage:  "Show the latest snapshot per domain",
				Action: r.CacheStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Fetch both libraries and snapshot them locally",
				Action: r.CacheRefresh,
			},
		},
	}
}

// watchCommand returns the top-level watch command for the live library view.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"live"},
		Usage:   "Watch your libraries update live in an interactive view",
		Action:  r.Watch,
	}
}
