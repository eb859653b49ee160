package models

import (
	"fmt"
	"strings"
	"time"
)

var _ Model = (*TaskRecord)(nil)

// TaskRecord is a watched task persisted in the local history.
type TaskRecord struct {
	id         string
	sequence   int
	taskID     string
	title      string
	state      PollState
	lastStatus string
	message    string
	polls      int
	createdAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
	deletedAt  *time.Time
}

// NewTaskRecord creates a record for a task that is about to be polled.
func NewTaskRecord(taskID, title string) *TaskRecord {
	now := time.Now()
	return &TaskRecord{
		taskID:    taskID,
		title:     title,
		state:     PollPolling,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *TaskRecord) ID() string                 { return r.id }
func (r *TaskRecord) Sequence() int              { return r.sequence }
func (r *TaskRecord) TaskID() string             { return r.taskID }
func (r *TaskRecord) Title() string              { return r.title }
func (r *TaskRecord) State() PollState           { return r.state }
func (r *TaskRecord) LastStatus() string         { return r.lastStatus }
func (r *TaskRecord) Message() string            { return r.message }
func (r *TaskRecord) Polls() int                 { return r.polls }
func (r *TaskRecord) CreatedAt() time.Time       { return r.createdAt }
func (r *TaskRecord) UpdatedAt() time.Time       { return r.updatedAt }
func (r *TaskRecord) FinishedAt() *time.Time     { return r.finishedAt }
func (r *TaskRecord) DeletedAt() *time.Time      { return r.deletedAt }
func (r *TaskRecord) SetID(id string)            { r.id = id }
func (r *TaskRecord) SetSequence(seq int)        { r.sequence = seq }
func (r *TaskRecord) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *TaskRecord) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *TaskRecord) SetDeletedAt(t *time.Time)  { r.deletedAt = t }
func (r *TaskRecord) SetFinishedAt(t *time.Time) { r.finishedAt = t }
func (r *TaskRecord) SetPolls(n int)             { r.polls = n }

// MissPoll counts a status request that produced no status. Polls counts every request.
func (r *TaskRecord) MissPoll() { r.polls++ }

// Observe applies a freshly polled status to the record.
func (r *TaskRecord) Observe(s TaskStatus) {
	r.polls++
	r.lastStatus = s.Raw
	if s.Message != "" {
		r.message = s.Message
	}
}

// SetStatus restores the last observed raw status and message, as loaded from storage.
func (r *TaskRecord) SetStatus(raw, message string) {
	r.lastStatus = raw
	r.message = message
}

// Finish moves the record into its final state.
func (r *TaskRecord) Finish(state PollState, at time.Time) {
	r.state = state
	r.finishedAt = &at
}

// SetState sets the poll state without touching the finish time.
func (r *TaskRecord) SetState(state PollState) { r.state = state }

// Validate checks required fields.
func (r *TaskRecord) Validate() error {
	if strings.TrimSpace(r.taskID) == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(r.title) == "" {
		return fmt.Errorf("title is required")
	}
	if !r.state.Valid() {
		return fmt.Errorf("invalid poll state %q", r.state)
	}
	if r.polls < 0 {
		return fmt.Errorf("poll count must not be negative")
	}
	return nil
}
