package models

// StatusKind tags the variant held by a [TaskStatus].
type StatusKind int

const (
	StatusPending StatusKind = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusUnknown
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step is the symbolic identifier of a scan phase.
type Step string

const (
	StepQueued                Step = "queued"
	StepSearchingAudioFiles   Step = "searching_audio_files"
	StepProcessingAudioFiles  Step = "processing_audio_files"
	StepGettingExistingFiles  Step = "getting_existing_files"
	StepSearchingNewFiles     Step = "searching_new_files"
	StepGettingExistingAlbums Step = "getting_existing_albums"
	StepCovers                Step = "covers"
)

// StepInfo describes the phase of a running task.
//
// Current and Total are optional; nil means the server did not report them.
type StepInfo struct {
	Step    Step
	Current *int
	Total   *int
}

// NewStepInfo returns a StepInfo with both counters set.
func NewStepInfo(step Step, current, total int) StepInfo {
	return StepInfo{Step: step, Current: &current, Total: &total}
}

// Ratio returns current/total clamped to [0,1].
// ok is false unless both counters are present and total > 0.
func (s StepInfo) Ratio() (ratio float64, ok bool) {
	if s.Current == nil || s.Total == nil || *s.Total <= 0 {
		return 0, false
	}
	ratio = float64(*s.Current) / float64(*s.Total)
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}
	return ratio, true
}

// TaskStatus is the server-reported state of one asynchronous job.
//
// Values are produced fresh per poll and never mutated; only the fields of the active Kind are meaningful.
type TaskStatus struct {
	Kind    StatusKind
	Info    StepInfo       // Running
	Message string         // Succeeded, Failed
	Result  map[string]any // Succeeded with a structured result
	Raw     string         // Raw status string as reported by the server
}

func Pending() TaskStatus { return TaskStatus{Kind: StatusPending, Raw: "PENDING"} }

func Running(info StepInfo) TaskStatus {
	return TaskStatus{Kind: StatusRunning, Info: info, Raw: "PROGRESS"}
}

func Succeeded(message string, result map[string]any) TaskStatus {
	return TaskStatus{Kind: StatusSucceeded, Message: message, Result: result, Raw: "SUCCESS"}
}

func Failed(message string) TaskStatus {
	return TaskStatus{Kind: StatusFailed, Message: message, Raw: "FAILURE"}
}

func Unknown(raw string) TaskStatus { return TaskStatus{Kind: StatusUnknown, Raw: raw} }

// Terminal reports whether polling must stop after this status.
func (s TaskStatus) Terminal() bool {
	return s.Kind == StatusSucceeded || s.Kind == StatusFailed
}

// PollState is the lifecycle state of one polling loop.
type PollState string

const (
	PollNotStarted PollState = "not_started"
	PollPolling    PollState = "polling"
	PollSucceeded  PollState = "succeeded"
	PollFailed     PollState = "failed"
	PollAborted    PollState = "aborted"
)

// Finished reports whether the loop has exited.
func (p PollState) Finished() bool {
	return p == PollSucceeded || p == PollFailed || p == PollAborted
}

// Valid reports whether p is one of the known states.
func (p PollState) Valid() bool {
	switch p {
	case PollNotStarted, PollPolling, PollSucceeded, PollFailed, PollAborted:
		return true
	default:
		return false
	}
}

// TerminalState maps a terminal status to the state the loop ends in.
func TerminalState(s TaskStatus) PollState {
	switch s.Kind {
	case StatusSucceeded:
		return PollSucceeded
	case StatusFailed:
		return PollFailed
	default:
		return PollPolling
	}
}
