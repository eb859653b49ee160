package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

// TaskRecorder implements tasks.Recorder using TaskRepository.
//
// Watching a task that is already recorded resumes its record instead of creating a duplicate.
type TaskRecorder struct {
	repo *TaskRepository
	now  func() time.Time
}

// NewTaskRecorder creates a new TaskRecorder with the given repository
func NewTaskRecorder(repo *TaskRepository) *TaskRecorder {
	return &TaskRecorder{repo: repo, now: time.Now}
}

// Started creates the record for taskID, or moves an existing one back to polling.
func (a *TaskRecorder) Started(_ context.Context, taskID, title string) error {
	existing, err := a.repo.GetByTaskID(taskID)
	switch {
	case err == nil:
		existing.SetState(models.PollPolling)
		existing.SetFinishedAt(nil)
		return a.repo.Update(existing)
	case !errors.Is(err, shared.ErrTaskNotFound):
		return err
	}

	record := models.NewTaskRecord(taskID, title)
	err = a.repo.Create(record)
	if isUniqueViolation(err) {
		if err := a.repo.purge(taskID); err != nil {
			return err
		}
		err = a.repo.Create(record)
	}
	if err != nil {
		return fmt.Errorf("failed to record task: %w", err)
	}
	return nil
}

// Observed stores the latest polled status.
func (a *TaskRecorder) Observed(_ context.Context, taskID string, status models.TaskStatus) error {
	record, err := a.repo.GetByTaskID(taskID)
	if err != nil {
		return err
	}
	record.Observe(status)
	return a.repo.Update(record)
}

// Missed counts a failed status request.
func (a *TaskRecorder) Missed(_ context.Context, taskID string, _ error) error {
	record, err := a.repo.GetByTaskID(taskID)
	if err != nil {
		return err
	}
	record.MissPoll()
	return a.repo.Update(record)
}

// Finished stores the final poll state.
func (a *TaskRecorder) Finished(_ context.Context, taskID string, state models.PollState) error {
	record, err := a.repo.GetByTaskID(taskID)
	if err != nil {
		return err
	}
	record.Finish(state, a.now())
	return a.repo.Update(record)
}
