// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/palgatox64/sonusitory/internal/formatter"
	"github.com/palgatox64/sonusitory/internal/services"
	"github.com/urfave/cli/v3"
)

func scanKindNames() string {
	names := []string{}
	for _, k := range services.ScanKinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, "|")
}

// watchFlags are shared by every command that follows a task.
func watchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "title",
			Usage: "Title shown above the progress",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Follow progress in the terminal UI",
		},
		&cli.BoolFlag{
			Name:  "open",
			Usage: "Open the library in the browser when the task succeeds",
		},
	}
}

// scanCommand handles scan submission and progress tracking
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Start media library scans and follow their progress",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Submit a scan job and print its task ID",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Scan kind (" + scanKindNames() + ")",
						Value:   string(services.ScanFull),
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Poll the task until it finishes",
					},
				}, watchFlags()...),
				Action: r.ScanStart,
			},
			{
				Name:  "watch",
				Usage: "Poll an existing task until it finishes",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task-id"},
				},
				Flags:  watchFlags(),
				Action: r.ScanWatch,
			},
			{
				Name:  "status",
				Usage: "Fetch the current status of a task once",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task-id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the normalized status as JSON",
					},
				},
				Action: r.ScanStatus,
			},
		},
	}
}

// tasksCommand handles the local task history
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"history"},
		Usage:   "Inspect the history of watched tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded tasks, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "state",
						Usage: "Only show tasks in this state (polling, succeeded, failed, aborted)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tasks to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.TasksList,
			},
			{
				Name:  "show",
				Usage: "Show one recorded task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task-id"},
				},
				Action: r.TasksShow,
			},
			{
				Name:  "export",
				Usage: "Export the task history",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown)",
						Value:   string(formatter.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to stdout)",
					},
				},
				Action: r.TasksExport,
			},
			{
				Name:  "prune",
				Usage: "Permanently remove finished tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "state",
						Usage: "Only prune tasks in this state (succeeded, failed, aborted)",
					},
				},
				Action: r.TasksPrune,
			},
		},
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the history database and browser session",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the config file if missing and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "session",
				Usage: "Save the browser session from a \"Copy as cURL\" command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Session file path (defaults to server.session_path)",
					},
				},
				Action: r.SetupSession,
			},
		},
	}
}

// serveCommand runs the local job simulator
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local simulator of the scan job endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to dev.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to dev.port)",
			},
			&cli.IntFlag{
				Name:  "fail-after",
				Usage: "Fail every job after this many stages (0 disables)",
			},
		},
		Action: r.Serve,
	}
}
