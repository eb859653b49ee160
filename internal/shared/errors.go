package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig  = fmt.Errorf("configuration not found")
	ErrInvalidConfig  = fmt.Errorf("invalid configuration")
	ErrMissingSession = fmt.Errorf("session not configured")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrUnexpectedResponse = fmt.Errorf("unexpected response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Task errors
	ErrTaskNotFound = fmt.Errorf("task not found")
	ErrTaskFailed   = fmt.Errorf("task failed")
	ErrTaskAborted  = fmt.Errorf("task polling aborted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
