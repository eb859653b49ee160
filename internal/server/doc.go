// Package server provides the HTTP infrastructure behind `sonus serve`, a local
// stand-in for the media library's job endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the middleware used by the simulator.
//
// The [BasicRouter] implementation registers method patterns ("GET /healthz") on an [http.ServeMux].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Job Simulator
//
// [Simulator] answers the same endpoints as the real server:
//
//	POST /start-scan/          → {"task_id": "..."}
//	POST /start-quick-scan/    → {"task_id": "..."}
//	POST /start-cover-scan/    → {"task_id": "..."}
//	GET  /task-status/{id}/    → {"task_id": ..., "status": ..., "info": ...}
//
// Each status request advances the job one [Stage] through its script. Unknown ids
// report PENDING, and FailAfter turns jobs into FAILURE after a number of stages.
//
// # Lifecycle
//
// [Server.Serve] runs the HTTP server and a signal handler in an oklog/run group:
// whichever returns first (SIGINT/SIGTERM, context cancellation or a serve error)
// interrupts the other, and the HTTP server is shut down gracefully.
package server
