// Package services talks to the media library server over HTTP.
//
// # API Service
//
// [APIService] is the raw transport: it joins paths onto the configured base URL,
// replays the browser session captured with `setup session` (cookie and X-CSRFToken)
// and throttles requests with a [rate.Limiter].
//
// # Task Service
//
// [TaskService] knows the job endpoints of the library server:
//   - POST /start-scan/, /start-quick-scan/, /start-cover-scan/ answer {"task_id": "..."}
//   - GET /task-status/{id}/ answers {"task_id": ..., "status": ..., "info": ...}
//
// Status payloads are mapped to [models.TaskStatus] by [ParseStatus]:
//   - PENDING → Pending
//   - STARTED, PROGRESS → Running with step/current/total from info
//   - SUCCESS → Succeeded with info as message (string) or result (object)
//   - FAILURE → Failed with exc_message, message, or info itself when it is a string
//   - anything else → Unknown
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrAPIRequest] : request could not be made or returned a non-2xx status
//   - [shared.ErrUnexpectedResponse] : response body is not the expected JSON
//   - [shared.ErrTaskNotFound] : the server answered 404 for a status request
//   - [shared.ErrInvalidArgument] : unknown scan kind
package services
