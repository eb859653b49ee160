package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/palgatox64/sonusitory/internal/repositories"
	"github.com/palgatox64/sonusitory/internal/services"
	"github.com/palgatox64/sonusitory/internal/shared"
	"github.com/palgatox64/sonusitory/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	tasks      *services.TaskService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	scheduler  tasks.Scheduler
	openURL    func(string) error
	tuiLogPath string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Scheduler  tasks.Scheduler    // defaults to real timers
	OpenURL    func(string) error // defaults to [shared.OpenBrowser]
	TUILogPath string
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
	if opts.Scheduler == nil {
		opts.Scheduler = tasks.TimerScheduler{}
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.TUILogPath == "" {
		opts.TUILogPath = "./tmp/sonus-tui.log"
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		scheduler:  opts.Scheduler,
		openURL:    opts.OpenURL,
		tuiLogPath: opts.TUILogPath,
	}
	r.connect(nil)
	return r
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "sonus",
		Usage:   "Start and follow media library scan jobs",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Configure,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		scanCommand, tasksCommand, setupCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the configuration file named by --config, when it exists, and the saved browser session.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path != "" {
		r.configPath = path
		config, err := shared.LoadConfig(path)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using current settings", "path", path)
		case err != nil:
			return ctx, err
		default:
			r.config = config
			r.logger.Debug("loaded config", "path", path)
		}
	}

	session, err := shared.LoadSession(r.config.Server.SessionPath)
	switch {
	case errors.Is(err, shared.ErrMissingSession):
		r.logger.Debug("no browser session saved, requests are anonymous", "path", r.config.Server.SessionPath)
	case err != nil:
		return ctx, err
	}

	r.connect(session)
	return ctx, nil
}

// connect rebuilds the API client from the current configuration.
func (r *Runner) connect(session *shared.Session) {
	r.api = services.NewAPIService(r.config.Server.BaseURL, r.httpClient).
		WithSession(session).
		WithRateLimit(r.config.Server.RequestsPerSecond)
	r.tasks = services.NewTaskService(r.api)
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// database opens and migrates the history database.
func (r *Runner) database() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

// taskRepository opens the history database and returns its task repository together with a close func.
func (r *Runner) taskRepository() (*repositories.TaskRepository, func(), error) {
	db, err := r.database()
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewTaskRepository(db), func() { db.Close() }, nil
}

// libraryURL is the absolute URL of the page opened after a successful scan.
func (r *Runner) libraryURL() string {
	return shared.JoinURL(r.config.Server.BaseURL, r.config.Server.LibraryPath)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
