package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/palgatox64/sonusitory/internal/formatter"
	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/repositories"
	"github.com/palgatox64/sonusitory/internal/services"
	"github.com/palgatox64/sonusitory/internal/shared"
	"github.com/palgatox64/sonusitory/internal/tasks"
	"github.com/palgatox64/sonusitory/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultWatchTitle = "Tarea de la biblioteca"

// ScanStart submits a scan job. With --watch or --tui it follows the task until it finishes.
func (r *Runner) ScanStart(ctx context.Context, cmd *cli.Command) error {
	kind, err := services.ParseScanKind(cmd.String("kind"))
	if err != nil {
		return err
	}

	taskID, err := r.tasks.StartScan(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}
	r.logger.Info("scan submitted", "kind", kind, "task", taskID)

	if !cmd.Bool("watch") && !cmd.Bool("tui") {
		return r.writePlain("%s\n", taskID)
	}

	title := cmd.String("title")
	if title == "" {
		title = kind.Title()
	}
	return r.watch(ctx, cmd, taskID, title)
}

// ScanWatch follows an already submitted task until it finishes.
func (r *Runner) ScanWatch(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task ID is required", shared.ErrMissingArgument)
	}

	title := cmd.String("title")
	if title == "" {
		title = defaultWatchTitle
	}
	return r.watch(ctx, cmd, taskID, title)
}

// ScanStatus fetches a task's status once and prints it.
func (r *Runner) ScanStatus(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task ID is required", shared.ErrMissingArgument)
	}

	status, err := r.tasks.FetchStatus(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(statusJSON(taskID, status), true)
	}
	return r.writePlain("%s\n", formatter.ToText(formatter.RenderStatus(status)))
}

func statusJSON(taskID string, s models.TaskStatus) map[string]any {
	out := map[string]any{
		"task_id": taskID,
		"status":  s.Raw,
		"kind":    s.Kind.String(),
	}
	if s.Message != "" {
		out["message"] = s.Message
	}
	if s.Result != nil {
		out["result"] = s.Result
	}
	if s.Kind == models.StatusRunning {
		info := map[string]any{"step": string(s.Info.Step)}
		if s.Info.Current != nil {
			info["current"] = *s.Info.Current
		}
		if s.Info.Total != nil {
			info["total"] = *s.Info.Total
		}
		out["info"] = info
	}
	return out
}

// watch polls taskID to completion on the text or terminal UI surface and maps the outcome to an error.
func (r *Runner) watch(ctx context.Context, cmd *cli.Command, taskID, title string) error {
	var recorder tasks.Recorder
	if repo, closeDB, err := r.taskRepository(); err != nil {
		r.logger.Warn("task history disabled", "err", err)
	} else {
		defer closeDB()
		recorder = repositories.NewTaskRecorder(repo)
	}

	var (
		h   *tasks.Handle
		err error
	)
	if cmd.Bool("tui") {
		h, err = r.watchTUI(ctx, recorder, taskID, title)
	} else {
		poller := r.newPoller(recorder, r.logger)
		h, err = poller.Watch(ctx, taskID, title, tasks.NewTextSurface(r.output))
	}
	if err != nil {
		return err
	}

	return r.outcome(h, !cmd.Bool("tui") && cmd.Bool("open"))
}

// watchTUI runs the terminal UI until the user leaves it, then waits for the polling loop.
//
// Logs go to a file while the UI owns the terminal.
func (r *Runner) watchTUI(ctx context.Context, recorder tasks.Recorder, taskID, title string) (*tasks.Handle, error) {
	logger, err := shared.NewFileLogger(r.tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	logger.SetLevel(r.logger.GetLevel())

	done := make(chan struct{})
	surface := tasks.NewChannelSurface(1, done)

	h, err := r.newPoller(recorder, logger).Start(ctx, taskID, title, surface)
	if err != nil {
		return nil, err
	}
	go func() {
		<-h.Done()
		surface.Close()
	}()

	_, err = ui.Run(ctx, ui.Opts{
		Views:       surface.Views(),
		Cancel:      h.Cancel,
		NavigateURL: r.libraryURL(),
		Open:        r.openURL,
	})
	close(done)
	if err != nil {
		h.Cancel()
		h.Wait()
		return nil, err
	}

	h.Wait()
	return h, nil
}

func (r *Runner) newPoller(recorder tasks.Recorder, logger *log.Logger) *tasks.Poller {
	return tasks.NewPoller(tasks.PollerOpts{
		Fetcher:       r.tasks,
		Scheduler:     r.scheduler,
		Recorder:      recorder,
		Logger:        logger,
		Interval:      r.config.Polling.Interval(),
		ErrorInterval: r.config.Polling.ErrorInterval(),
	})
}

// outcome maps the final poll state to the command result.
func (r *Runner) outcome(h *tasks.Handle, open bool) error {
	switch h.State() {
	case models.PollSucceeded:
		url := r.libraryURL()
		if !open {
			return nil
		}
		if err := r.openURL(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "err", err)
			return r.writePlain("Visita %s\n", url)
		}
		return nil
	case models.PollFailed:
		return fmt.Errorf("%w: %s: %s", shared.ErrTaskFailed, h.TaskID(), h.Last().Message)
	default:
		return fmt.Errorf("%w: %s", shared.ErrTaskAborted, h.TaskID())
	}
}
