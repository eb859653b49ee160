package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/palgatox64/sonusitory/internal/formatter"
	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

// actionFunc handles the action of a final view.
type actionFunc func(m *Model) tea.Cmd

// Opts configures a [Model].
type Opts struct {
	Views       <-chan formatter.View // views rendered by the poller; closed when the loop exits
	Cancel      func()                // aborts polling when the user quits early
	NavigateURL string                // absolute URL opened by the navigate action
	Open        func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	views       <-chan formatter.View
	cancel      func()
	navigateURL string
	open        func(string) error
	actions     map[formatter.ActionKind]actionFunc

	current  formatter.View
	closed   bool
	notice   string
	width    int
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(opts Opts) *Model {
	if opts.Cancel == nil {
		opts.Cancel = func() {}
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = NewStyle(styles.accent)

	return &Model{
		views:       opts.Views,
		cancel:      opts.Cancel,
		navigateURL: opts.NavigateURL,
		open:        opts.Open,
		actions:     defaultActions(),
		current:     formatter.RenderStatus(models.Pending()),
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

func defaultActions() map[formatter.ActionKind]actionFunc {
	return map[formatter.ActionKind]actionFunc{
		formatter.ActionNone:     quitAction,
		formatter.ActionNavigate: navigateAction,
		formatter.ActionDismiss:  quitAction,
	}
}

func quitAction(m *Model) tea.Cmd {
	m.cancel()
	return tea.Quit
}

func navigateAction(m *Model) tea.Cmd {
	url := m.navigateURL
	if url == "" {
		url = m.current.Action.Target
	}
	open := m.open
	return func() tea.Msg {
		return navigatedMsg(url, open(url))
	}
}

// Run starts the program and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Opts) (*Model, error) {
	final, err := tea.NewProgram(NewModel(opts), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("terminal UI failed: %w", err)
	}
	m, _ := final.(*Model)
	return m, nil
}

// Current returns the last view received.
func (m *Model) Current() formatter.View { return m.current }

// Init starts the spinner and waits for the first view.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForView())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-4, 10), 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgViewRendered:
		m.current = msg.data.(formatter.View)
		return m, m.waitForView()

	case MsgViewsClosed:
		m.closed = true
		if !m.current.Terminal {
			return m, tea.Quit
		}
		return m, nil

	case MsgNavigated:
		data := msg.data.(struct {
			url string
			err error
		})
		if data.err != nil {
			m.notice = fmt.Sprintf("No se pudo abrir el navegador, visita %s", data.url)
			return m, nil
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, quitAction(m)
	case key.Matches(msg, m.keys.back):
		if m.current.Terminal {
			return m, m.actions[formatter.ActionDismiss](m)
		}
	case key.Matches(msg, m.keys.enter):
		if m.current.Terminal {
			return m, m.dispatch(m.current.Action.Kind)
		}
	}
	return m, nil
}

func (m *Model) dispatch(kind formatter.ActionKind) tea.Cmd {
	if action, ok := m.actions[kind]; ok {
		return action(m)
	}
	return m.actions[formatter.ActionNone](m)
}

func (m *Model) waitForView() tea.Cmd {
	views := m.views
	return func() tea.Msg {
		if views == nil {
			return viewsClosedMsg()
		}
		v, ok := <-views
		if !ok {
			return viewsClosedMsg()
		}
		return viewRenderedMsg(v)
	}
}

// View renders the current task view.
func (m *Model) View() string {
	v := m.current
	var b strings.Builder

	if v.Title != "" {
		b.WriteString(styles.title.Render(v.Title))
		b.WriteString("\n")
	}

	style := styles.For(v.Color)
	for i, line := range v.Lines {
		if i == 0 && v.Spinner {
			b.WriteString(m.spinner.View())
			b.WriteString(" ")
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if v.Determinate && !v.Terminal {
		b.WriteString("\n")
		b.WriteString(m.progress.ViewAs(float64(v.Percent) / 100))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.muted.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

func (m *Model) helpKeys() []key.Binding {
	if !m.current.Terminal {
		return []key.Binding{m.keys.quit}
	}

	label := m.current.Action.Label
	if label == "" {
		label = "close"
	}
	enter := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", strings.ToLower(label)))
	return []key.Binding{enter, m.keys.back, m.keys.quit}
}
