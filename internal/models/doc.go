// Package models defines domain entities and persistence interfaces for the sonusitory scan client.
//
// The package contains two categories of types:
//
// 1. Status values: immutable snapshots reported by the library server
//   - [TaskStatus] : tagged variant (Pending, Running, Succeeded, Failed, Unknown)
//   - [StepInfo] : current phase of a running task with optional counters
//   - [Step] : symbolic phase identifiers emitted by the scan jobs
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [TaskRecord] : a watched task, its poll state and last reported status
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
