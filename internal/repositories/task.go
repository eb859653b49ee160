package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

var _ models.Repository[*models.TaskRecord] = (*TaskRepository)(nil)

const taskColumns = `id, sequence, task_id, title, state, last_status, message, polls, created_at, updated_at, finished_at, deleted_at`

// TaskRepository implements models.Repository[*models.TaskRecord] for the task history.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new [models.TaskRecord] with generated ID and sequence
func (r *TaskRepository) Create(task *models.TaskRecord) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO tasks (id, sequence, task_id, title, state, last_status, message, polls, created_at, updated_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		task.TaskID(),
		task.Title(),
		string(task.State()),
		task.LastStatus(),
		task.Message(),
		task.Polls(),
		task.CreatedAt(),
		task.UpdatedAt(),
		nullTime(task.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	task.SetID(id)
	task.SetSequence(sequence)
	return nil
}

// Get retrieves a record by ID, excluding soft-deleted records
func (r *TaskRepository) Get(id string) (*models.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByTaskID retrieves a record by the server-assigned task id
func (r *TaskRepository) GetByTaskID(taskID string) (*models.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE task_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, taskID))
}

// Update writes the mutable fields of a record
func (r *TaskRepository) Update(task *models.TaskRecord) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	task.SetUpdatedAt(now)

	query := `
		UPDATE tasks
		SET title = ?, state = ?, last_status = ?, message = ?, polls = ?, updated_at = ?, finished_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		task.Title(),
		string(task.State()),
		task.LastStatus(),
		task.Message(),
		task.Polls(),
		now,
		nullTime(task.FinishedAt()),
		task.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return requireRow(result, task.ID())
}

// Delete soft-deletes a record by ID
func (r *TaskRepository) Delete(id string) error {
	query := `UPDATE tasks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return requireRow(result, id)
}

// List retrieves records matching the given criteria, newest first.
//
// Supported criteria: "state" (string or [models.PollState]) and "limit" (int).
func (r *TaskRepository) List(criteria map[string]any) ([]*models.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`
	args := []any{}

	if state := stateCriteria(criteria); state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.TaskRecord
	for rows.Next() {
		task, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// Prune permanently removes finished records, optionally restricted to one state, along with soft-deleted rows.
func (r *TaskRepository) Prune(state models.PollState) (int64, error) {
	var (
		query = `DELETE FROM tasks WHERE deleted_at IS NOT NULL OR state IN (?, ?, ?)`
		args  = []any{string(models.PollSucceeded), string(models.PollFailed), string(models.PollAborted)}
	)
	if state != "" {
		if !state.Finished() {
			return 0, fmt.Errorf("%w: only finished tasks can be pruned, got %q", shared.ErrInvalidArgument, state)
		}
		query = `DELETE FROM tasks WHERE deleted_at IS NOT NULL OR state = ?`
		args = []any{string(state)}
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune tasks: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// purge permanently removes soft-deleted rows for taskID so it can be recorded again.
func (r *TaskRepository) purge(taskID string) error {
	if _, err := r.db.Exec(`DELETE FROM tasks WHERE task_id = ? AND deleted_at IS NOT NULL`, taskID); err != nil {
		return fmt.Errorf("failed to purge task: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row from [sql.Row] or [sql.Rows] into a [models.TaskRecord]
func (r *TaskRepository) scan(row scanner) (*models.TaskRecord, error) {
	var (
		id         string
		sequence   int
		taskID     string
		title      string
		state      string
		lastStatus string
		message    string
		polls      int
		createdAt  time.Time
		updatedAt  time.Time
		finishedAt sql.NullTime
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &taskID, &title, &state, &lastStatus, &message, &polls, &createdAt, &updatedAt, &finishedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	task := models.NewTaskRecord(taskID, title)
	task.SetID(id)
	task.SetSequence(sequence)
	task.SetState(models.PollState(state))
	task.SetStatus(lastStatus, message)
	task.SetPolls(polls)
	task.SetCreatedAt(createdAt)
	task.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		task.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		task.SetDeletedAt(&deletedAt.Time)
	}

	return task, nil
}

func stateCriteria(criteria map[string]any) string {
	switch s := criteria["state"].(type) {
	case string:
		return s
	case models.PollState:
		return string(s)
	default:
		return ""
	}
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrTaskNotFound, id)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
