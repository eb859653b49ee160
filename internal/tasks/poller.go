package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/palgatox64/sonusitory/internal/formatter"
	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

const (
	DefaultInterval      = 2000 * time.Millisecond
	DefaultErrorInterval = 2500 * time.Millisecond
)

// StatusFetcher performs one status request for a task.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, taskID string) (models.TaskStatus, error)
}

// Surface receives every rendered view of a task, in order.
type Surface interface {
	Render(v formatter.View)
}

// SurfaceFunc adapts a function to [Surface].
type SurfaceFunc func(v formatter.View)

func (f SurfaceFunc) Render(v formatter.View) { f(v) }

// Recorder persists the lifecycle of watched tasks.
type Recorder interface {
	Started(ctx context.Context, taskID, title string) error
	Observed(ctx context.Context, taskID string, status models.TaskStatus) error
	Missed(ctx context.Context, taskID string, err error) error
	Finished(ctx context.Context, taskID string, state models.PollState) error
}

// Scheduler suspends the loop between polls.
//
// Wait returns early with the context error when ctx is cancelled.
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler waits on a real timer.
type TimerScheduler struct{}

func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollerOpts configures a [Poller]. Only Fetcher is required.
type PollerOpts struct {
	Fetcher       StatusFetcher
	Scheduler     Scheduler
	Recorder      Recorder
	Logger        *log.Logger
	Interval      time.Duration
	ErrorInterval time.Duration
}

// Poller starts polling loops. It holds no per-task state; each loop is owned by its [Handle].
type Poller struct {
	fetcher       StatusFetcher
	scheduler     Scheduler
	recorder      Recorder
	logger        *log.Logger
	interval      time.Duration
	errorInterval time.Duration
}

func NewPoller(opts PollerOpts) *Poller {
	p := &Poller{
		fetcher:       opts.Fetcher,
		scheduler:     opts.Scheduler,
		recorder:      opts.Recorder,
		logger:        opts.Logger,
		interval:      opts.Interval,
		errorInterval: opts.ErrorInterval,
	}
	if p.scheduler == nil {
		p.scheduler = TimerScheduler{}
	}
	if p.logger == nil {
		p.logger = shared.NewLogger(io.Discard)
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.errorInterval <= 0 {
		p.errorInterval = DefaultErrorInterval
	}
	return p
}

// Start renders the queued placeholder on surface and begins polling taskID in the background.
//
// An empty taskID is a caller error: nothing is rendered and no loop starts.
func (p *Poller) Start(ctx context.Context, taskID, title string, surface Surface) (*Handle, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is empty", shared.ErrMissingArgument)
	}
	if p.fetcher == nil {
		return nil, fmt.Errorf("%w: no status fetcher configured", shared.ErrServiceUnavailable)
	}
	if surface == nil {
		surface = SurfaceFunc(func(formatter.View) {})
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		taskID: taskID,
		title:  title,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  models.PollPolling,
		last:   models.Pending(),
	}
	logger := shared.WithLogger(p.logger, "task", taskID)

	p.record(ctx, logger, "start", func(ctx context.Context) error {
		return p.recorder.Started(ctx, taskID, title)
	})
	surface.Render(formatter.RenderTask(title, models.Pending()))

	go p.run(ctx, h, surface, logger)
	return h, nil
}

// Watch starts polling and blocks until the loop exits.
func (p *Poller) Watch(ctx context.Context, taskID, title string, surface Surface) (*Handle, error) {
	h, err := p.Start(ctx, taskID, title, surface)
	if err != nil {
		return nil, err
	}
	h.Wait()
	return h, nil
}

func (p *Poller) run(ctx context.Context, h *Handle, surface Surface, logger *log.Logger) {
	defer close(h.done)
	defer h.cancel()

	for {
		status, err := p.fetcher.FetchStatus(ctx, h.taskID)
		h.countPoll()
		if ctx.Err() != nil {
			p.record(context.WithoutCancel(ctx), logger, "miss", func(rctx context.Context) error {
				return p.recorder.Missed(rctx, h.taskID, ctx.Err())
			})
			p.abort(ctx, h, logger)
			return
		}

		delay := p.interval
		if err != nil {
			delay = p.errorInterval
			logger.Warn("status poll failed", "err", err, "retry_in", delay)
			p.record(ctx, logger, "miss", func(ctx context.Context) error {
				return p.recorder.Missed(ctx, h.taskID, err)
			})
		} else {
			logger.Debug("status polled", "status", status.Raw, "kind", status.Kind)
			h.observe(status)
			p.record(ctx, logger, "observe", func(ctx context.Context) error {
				return p.recorder.Observed(ctx, h.taskID, status)
			})

			view := formatter.RenderTask(h.title, status)
			if status.Terminal() {
				state := models.TerminalState(status)
				h.stop(state)
				surface.Render(view)
				p.record(ctx, logger, "finish", func(ctx context.Context) error {
					return p.recorder.Finished(ctx, h.taskID, state)
				})
				logger.Info("task finished", "state", state, "polls", h.Polls())
				return
			}
			surface.Render(view)
		}

		if err := p.scheduler.Wait(ctx, delay); err != nil {
			p.abort(ctx, h, logger)
			return
		}
	}
}

func (p *Poller) abort(ctx context.Context, h *Handle, logger *log.Logger) {
	h.setState(models.PollAborted)
	p.record(context.WithoutCancel(ctx), logger, "abort", func(ctx context.Context) error {
		return p.recorder.Finished(ctx, h.taskID, models.PollAborted)
	})
	logger.Info("polling aborted", "polls", h.Polls())
}

func (p *Poller) record(ctx context.Context, logger *log.Logger, op string, fn func(context.Context) error) {
	if p.recorder == nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Warn("failed to record task", "op", op, "err", err)
	}
}

// Handle is the caller's view of one polling loop.
type Handle struct {
	taskID string
	title  string
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   models.PollState
	stopped bool
	polls   int
	last    models.TaskStatus
}

func (h *Handle) TaskID() string { return h.taskID }
func (h *Handle) Title() string  { return h.title }

// Cancel aborts the loop. It does not wait for the loop to exit.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the loop exits and returns its final state.
func (h *Handle) Wait() models.PollState {
	<-h.done
	return h.State()
}

func (h *Handle) State() models.PollState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Stopped reports whether a terminal status was reached.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Polls returns the number of status requests issued.
func (h *Handle) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

// Last returns the most recent status received from the server.
func (h *Handle) Last() models.TaskStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Handle) countPoll() {
	h.mu.Lock()
	h.polls++
	h.mu.Unlock()
}

func (h *Handle) observe(s models.TaskStatus) {
	h.mu.Lock()
	h.last = s
	h.mu.Unlock()
}

func (h *Handle) stop(state models.PollState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	h.state = state
}

func (h *Handle) setState(state models.PollState) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}
