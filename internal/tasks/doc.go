// Package tasks watches long-running scan jobs on the media library server.
//
// # Poller
//
// [Poller.Start] takes a task id handed out by the server and a title, renders a
// queued placeholder synchronously and then polls the status endpoint from a
// goroutine until the server reports a terminal status:
//
//  1. fetch the status through the [StatusFetcher]
//  2. render it through the [Surface] with [formatter.RenderTask]
//  3. on SUCCESS or FAILURE mark the [Handle] stopped, render the final view and exit
//  4. otherwise wait [PollerOpts.Interval] (or [PollerOpts.ErrorInterval] after a
//     failed request or malformed response) and poll again
//
// Failed requests are logged and retried without limit. A task that never
// finishes is polled until the caller cancels the context or calls [Handle.Cancel].
//
// # Cancellation
//
// Cancelling aborts the in-flight request or the pending wait. The loop exits
// without rendering and the handle ends in [models.PollAborted] with Stopped() false.
//
// # Scheduling
//
// Delays go through the injected [Scheduler], so tests can drive the loop without
// real timers. [TimerScheduler] is the production implementation.
//
// # Recording
//
// The optional [Recorder] persists each watched task (repositories.TaskRecorder).
// Recording errors are logged and ignored so they never disturb polling.
package tasks
