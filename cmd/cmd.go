// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database, run migrations, and create config.toml",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the jukebox: kiosk API, player bridge, and queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Default playlist ID (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

func loadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Fetch a playlist through the provider chain and print it",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Load,
	}
}

// queueCommand talks to a running jukebox server.
func queueCommand(r *Runner) *cli.Command {
	serverFlag := &cli.StringFlag{
		Name:  "server",
		Usage: "Base URL of the running jukebox server",
	}

	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect and control the running queue",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print now playing and the upcoming queue",
				Flags:  []cli.Flag{serverFlag, &cli.BoolFlag{Name: "pretty", Value: true}},
				Action: r.QueueShow,
			},
			{
				Name:  "request",
				Usage: "Submit a priority request by video ID",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "video",
					},
				},
				Flags: []cli.Flag{
					serverFlag,
					&cli.StringFlag{Name: "title", Usage: "Track title"},
					&cli.StringFlag{Name: "by", Usage: "Requester name"},
				},
				Action: r.QueueRequest,
			},
			{
				Name:  "skip",
				Usage: "Skip the current track",
				Flags: []cli.Flag{
					serverFlag,
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm skipping a user request"},
				},
				Action: r.QueueSkip,
			},
			{
				Name:   "shuffle",
				Usage:  "Shuffle the default playlist",
				Flags:  []cli.Flag{serverFlag},
				Action: r.QueueShuffle,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search for tracks through the running server",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "Base URL of the running jukebox server"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 10},
			&cli.BoolFlag{Name: "pretty", Value: true},
		},
		Action: r.Search,
	}
}

func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "API key quota estimates and validation",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Print per-key quota estimates from the running server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "Base URL of the running jukebox server"},
					&cli.BoolFlag{Name: "pretty", Value: true},
				},
				Action: r.QuotaStatus,
			},
			{
				Name:  "validate",
				Usage: "Validate an API key with a cheap probe call",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "key",
					},
				},
				Action: r.QuotaValidate,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print persisted play history",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of entries", Value: 20},
			&cli.BoolFlag{Name: "pretty", Value: true},
		},
		Action: r.History,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export play history to CSV with a summary file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "Output directory", Value: "."},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of entries", Value: 1000},
		},
		Action: r.Export,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Run the operator terminal UI with an in-process player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Default playlist ID (overrides config)",
			},
		},
		Action: r.TUI,
	}
}
