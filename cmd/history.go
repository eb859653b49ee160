package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/palgatox64/sonusitory/internal/formatter"
	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
	"github.com/urfave/cli/v3"
)

// taskJSON is the JSON shape of a recorded task.
type taskJSON struct {
	TaskID     string     `json:"task_id"`
	Title      string     `json:"title"`
	State      string     `json:"state"`
	LastStatus string     `json:"last_status,omitempty"`
	Message    string     `json:"message,omitempty"`
	Polls      int        `json:"polls"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func toTaskJSON(t *models.TaskRecord) taskJSON {
	return taskJSON{
		TaskID:     t.TaskID(),
		Title:      t.Title(),
		State:      string(t.State()),
		LastStatus: t.LastStatus(),
		Message:    t.Message(),
		Polls:      t.Polls(),
		CreatedAt:  t.CreatedAt(),
		FinishedAt: t.FinishedAt(),
	}
}

func parseState(s string) (models.PollState, error) {
	state := models.PollState(s)
	if s != "" && !state.Valid() {
		return "", fmt.Errorf("%w: unknown state %q", shared.ErrInvalidFlag, s)
	}
	return state, nil
}

// TasksList prints recorded tasks, newest first.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	state, err := parseState(cmd.String("state"))
	if err != nil {
		return err
	}

	repo, closeDB, err := r.taskRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.List(map[string]any{"state": state, "limit": int(cmd.Int("limit"))})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]taskJSON, 0, len(records))
		for _, t := range records {
			out = append(out, toTaskJSON(t))
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		return r.writePlain("No tasks recorded\n")
	}

	r.writePlainHeader(fmt.Sprintf("Tasks (%d)", len(records)))
	for _, t := range records {
		r.writePlain("%-36s  %-9s  %-8s  %s\n", t.TaskID(), t.State(), t.LastStatus(), t.Title())
	}
	return nil
}

// TasksShow prints one recorded task.
func (r *Runner) TasksShow(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task ID is required", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.taskRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	t, err := repo.GetByTaskID(taskID)
	if err != nil {
		return err
	}

	r.writePlainHeader(t.Title())
	r.writePlain("Task ID:     %s\n", t.TaskID())
	r.writePlain("State:       %s\n", t.State())
	r.writePlain("Last status: %s\n", t.LastStatus())
	if t.Message() != "" {
		r.writePlain("Message:     %s\n", t.Message())
	}
	r.writePlain("Polls:       %d\n", t.Polls())
	r.writePlain("Started:     %s\n", t.CreatedAt().Format(time.RFC3339))
	if f := t.FinishedAt(); f != nil {
		r.writePlain("Finished:    %s\n", f.Format(time.RFC3339))
	}
	return nil
}

// TasksExport writes the task history as CSV or Markdown.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, closeDB, err := r.taskRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	data, err := formatter.ExportHistory(records, format)
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}

	output := cmd.String("output")
	if output == "" {
		return r.writePlain("%s", data)
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	r.logger.Info("history exported", "path", output, "format", format, "tasks", len(records))
	return r.writePlain("✓ Exported %d tasks to %s\n", len(records), output)
}

// TasksPrune removes finished tasks from the history.
func (r *Runner) TasksPrune(ctx context.Context, cmd *cli.Command) error {
	state, err := parseState(cmd.String("state"))
	if err != nil {
		return err
	}

	repo, closeDB, err := r.taskRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := repo.Prune(state)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Pruned %d tasks\n", n)
}
