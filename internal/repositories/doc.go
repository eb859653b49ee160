// Package repositories implements SQLite persistence for watched tasks.
//
// [TaskRepository] implements models.Repository[*models.TaskRecord] with soft deletes via
// deleted_at timestamps; deleted records are excluded from queries by default.
// [TaskRecorder] adapts it to tasks.Recorder so the poller can record history as it runs.
//
// Sequence numbers provide stable, human-readable ordering (task #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
