package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aicodeguard/internal/pipeline"
)

// CheckerPort is the TUI-facing subset of the compliance checker.
type CheckerPort interface {
	CheckRepository(ctx context.Context, repoURL, branch string) pipeline.Result
}

type progressMsg pipeline.Message

type resultMsg pipeline.Result

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	checker  CheckerPort
	progress <-chan pipeline.Message
	input    textinput.Model
	viewport viewport.Model
	lines    []string
	result   *pipeline.Result
	status   string
	running  bool
	ready    bool
}

// New creates a new TUI model instance. progress receives the pipeline's
// log entries while a check runs; wire it to the checker's observer.
func New(checker CheckerPort, progress <-chan pipeline.Message) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Repository URL [branch], then Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{checker: checker, progress: progress, input: ti, viewport: vp,
		status: "Index loaded. Enter a repository to check."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and pipeline events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and input boxes
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case progressMsg:
		m.lines = append(m.lines, msg.Content)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, m.waitProgress()
	case resultMsg:
		res := pipeline.Result(msg)
		m.result = &res
		m.running = false
		if res.Err != "" {
			m.status = "Check failed."
		} else {
			m.status = "Check completed. Enter another repository or Ctrl+C to quit."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.running {
			url, branch := parseTarget(m.input.Value())
			if url != "" {
				m.running = true
				m.result = nil
				m.lines = nil
				m.status = fmt.Sprintf("Checking %s ...", url)
				m.viewport.SetContent(m.renderTranscript())
				return m, tea.Batch(m.runCheck(url, branch), m.waitProgress())
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the check transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("AI Code Guard")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) runCheck(url, branch string) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(m.checker.CheckRepository(context.Background(), url, branch))
	}
}

func (m Model) waitProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-m.progress
		if !ok {
			return nil
		}
		return progressMsg(msg)
	}
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	for _, line := range m.lines {
		b.WriteString(line + "\n")
	}
	if m.result != nil {
		if m.result.Err != "" {
			b.WriteString("\n" + errorStyle.Render(m.result.Err) + "\n")
		} else if m.result.ComplianceAnalysis != nil {
			b.WriteString("\n" + sectionStyle.Render("Compliance assessment") + "\n\n")
			b.WriteString(m.result.ComplianceAnalysis.Narrative + "\n")
		}
	} else if len(m.lines) == 0 {
		return "No check run yet."
	}
	return b.String()
}

// parseTarget splits "url [branch]" input; the branch is optional.
func parseTarget(s string) (url, branch string) {
	fields := strings.Fields(strings.TrimSpace(s))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sectionStyle       = lipgloss.NewStyle().Bold(true).Underline(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
