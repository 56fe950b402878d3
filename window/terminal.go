package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const terminalCloseTimeout = 2 * time.Second

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	addressStyle = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("10"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// TerminalConfig holds configuration options for the TerminalHost.
type TerminalConfig struct {
	Title          string             // Optional, defaults to "E2 Spy".
	OpenURL        func(string) error // Optional, defaults to OpenBrowser.
	ProgramOptions []tea.ProgramOption
	Logger         *slog.Logger // Optional, defaults to slog.Default().
}

// TerminalHost shows a loading spinner in the terminal and, once revealed,
// sends the system browser to the backend. Quitting the terminal UI is the
// window-close event.
type TerminalHost struct {
	title   string
	openURL func(string) error
	options []tea.ProgramOption
	logger  *slog.Logger

	mu         sync.Mutex
	program    *tea.Program
	visibility Visibility
	closing    bool
	runErr     error
	done       chan struct{}
}

// NewTerminalHost creates a TerminalHost. Nothing is drawn until Open.
func NewTerminalHost(config TerminalConfig) *TerminalHost {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	title := config.Title
	if title == "" {
		title = defaultTitle
	}
	openURL := config.OpenURL
	if openURL == nil {
		openURL = OpenBrowser
	}

	return &TerminalHost{
		title:   title,
		openURL: openURL,
		options: config.ProgramOptions,
		logger:  logger.With("component", "TerminalHost"),
		done:    make(chan struct{}),
	}
}

// Open starts the terminal UI in the background.
func (h *TerminalHost) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.program != nil {
		return nil
	}

	options := append([]tea.ProgramOption{tea.WithContext(ctx)}, h.options...)
	h.program = tea.NewProgram(newTerminalModel(h.title), options...)
	h.visibility = Hidden

	program := h.program
	go func() {
		defer close(h.done)
		_, err := program.Run()
		if err == nil {
			return
		}
		h.mu.Lock()
		expected := h.closing || ctx.Err() != nil
		if !expected {
			h.runErr = err
		}
		h.mu.Unlock()
		if expected {
			h.logger.Debug("Terminal UI stopped", "error", err)
			return
		}
		h.logger.Error("Terminal UI stopped with error", "error", err)
	}()
	return nil
}

// Reveal opens address in the system browser and shows it in the terminal.
func (h *TerminalHost) Reveal(address string) error {
	h.mu.Lock()
	program := h.program
	if program == nil {
		h.mu.Unlock()
		return ErrNotOpen
	}
	if h.visibility == Visible {
		h.mu.Unlock()
		return nil
	}
	h.visibility = Visible
	h.mu.Unlock()

	msg := readyMsg{address: address}
	if err := h.openURL(address); err != nil {
		h.logger.Warn("Failed to open browser", "address", address, "error", err)
		msg.browserErr = err
	}
	program.Send(msg)
	h.logger.Info("Backend address handed to browser", "address", address)
	return nil
}

// ReportProgress shows the number of readiness probes issued so far.
func (h *TerminalHost) ReportProgress(attempt int) {
	h.mu.Lock()
	program := h.program
	h.mu.Unlock()
	if program != nil {
		program.Send(progressMsg{attempt: attempt})
	}
}

// Visibility returns the current presentation state.
func (h *TerminalHost) Visibility() Visibility {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visibility
}

// Done is closed when the terminal UI exits.
func (h *TerminalHost) Done() <-chan struct{} {
	return h.done
}

// Err returns the error the terminal UI failed with, if any.
func (h *TerminalHost) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runErr
}

// Close quits the terminal UI and waits briefly for it to restore the terminal.
func (h *TerminalHost) Close() error {
	h.mu.Lock()
	program := h.program
	h.closing = true
	h.mu.Unlock()
	if program == nil {
		return nil
	}

	program.Quit()
	select {
	case <-h.done:
		return nil
	case <-time.After(terminalCloseTimeout):
		program.Kill()
		return fmt.Errorf("terminal UI did not exit within %s", terminalCloseTimeout)
	}
}

type readyMsg struct {
	address    string
	browserErr error
}

type progressMsg struct {
	attempt int
}

type terminalModel struct {
	title      string
	spinner    spinner.Model
	attempts   int
	address    string
	browserErr error
}

func newTerminalModel(title string) terminalModel {
	return terminalModel{
		title:   title,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
	}
}

func (m terminalModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case readyMsg:
		m.address = msg.address
		m.browserErr = msg.browserErr
		return m, nil
	case progressMsg:
		m.attempts = msg.attempt
		return m, nil
	case spinner.TickMsg:
		if m.address != "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m terminalModel) View() string {
	header := titleStyle.Render(m.title) + "\n\n"

	if m.address == "" {
		status := fmt.Sprintf("%s Waiting for the backend to start", m.spinner.View())
		if m.attempts > 0 {
			status += fmt.Sprintf(" (attempt %d)", m.attempts)
		}
		return header + status + "\n\n" + hintStyle.Render("q: quit") + "\n"
	}

	body := "Running at " + addressStyle.Render(m.address) + "\n"
	if m.browserErr != nil {
		body += errorStyle.Render("Could not open a browser: "+m.browserErr.Error()) + "\n"
	}
	return header + body + "\n" + hintStyle.Render("q: quit and stop the backend") + "\n"
}
