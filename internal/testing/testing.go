// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/palgatox64/sonusitory/internal/models"
)

// StatusScript is a scripted status source. Each FetchStatus call consumes the next step;
// once the script is exhausted the last step repeats.
type StatusScript struct {
	mu    sync.Mutex
	steps []ScriptStep
	calls []string
}

// ScriptStep is one scripted response: a status or an error.
type ScriptStep struct {
	Status models.TaskStatus
	Err    error
}

func NewStatusScript(steps ...ScriptStep) *StatusScript {
	return &StatusScript{steps: steps}
}

// Statuses builds a script that only returns statuses.
func Statuses(statuses ...models.TaskStatus) *StatusScript {
	steps := make([]ScriptStep, len(statuses))
	for i, s := range statuses {
		steps[i] = ScriptStep{Status: s}
	}
	return NewStatusScript(steps...)
}

func (s *StatusScript) FetchStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.TaskStatus{}, err
	}

	i := len(s.calls)
	s.calls = append(s.calls, taskID)
	if len(s.steps) == 0 {
		return models.Pending(), nil
	}
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i].Status, s.steps[i].Err
}

// Calls returns the number of FetchStatus calls made so far.
func (s *StatusScript) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// FakeScheduler records requested delays and returns immediately.
//
// When CancelAfter is positive, the scheduler cancels through Cancel on that call and reports the context error.
type FakeScheduler struct {
	mu          sync.Mutex
	delays      []time.Duration
	CancelAfter int
	Cancel      context.CancelFunc
}

func (f *FakeScheduler) Wait(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	n := len(f.delays)
	f.mu.Unlock()

	if f.CancelAfter > 0 && n >= f.CancelAfter && f.Cancel != nil {
		f.Cancel()
	}
	return ctx.Err()
}

// Delays returns a copy of the recorded delays.
func (f *FakeScheduler) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
