package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/glassbead-io/prism/types"
)

// Messages delivered from the streaming session goroutine via Program.Send.
// Each mirrors one dispatcher callback, so the TUI sees exactly what the
// plain renderer sees.
type (
	// ThoughtMsg replaces the status line.
	ThoughtMsg struct{ Content string }

	// CodeMsg carries one code chunk plus the running concatenation.
	CodeMsg struct{ Accumulated string }

	// DataMsg carries a query result.
	DataMsg struct{ Result types.QueryResult }

	// StreamErrMsg reports a non-fatal stream error.
	StreamErrMsg struct{ Err error }

	// DoneMsg marks stream completion. Err is nil on success.
	DoneMsg struct{ Err error }
)

// ChatModel is the Bubble Tea model for a live chat session.
type ChatModel struct {
	prompt   string
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool

	thought string
	code    string
	result  *types.QueryResult
	errs    []string

	done     bool
	doneErr  error
	quitting bool

	width  int
	height int
}

// NewChatModel creates a chat model for the given prompt.
func NewChatModel(prompt string) ChatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ThoughtStyle

	return ChatModel{
		prompt:  prompt,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 12
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, vpHeight)
			m.viewport.SetContent(m.code)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = vpHeight
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ThoughtMsg:
		m.thought = msg.Content
		return m, nil

	case CodeMsg:
		m.code = msg.Accumulated
		if m.ready {
			m.viewport.SetContent(m.code)
			m.viewport.GotoBottom()
		}
		return m, nil

	case DataMsg:
		result := msg.Result
		m.result = &result
		return m, nil

	case StreamErrMsg:
		m.errs = append(m.errs, msg.Err.Error())
		return m, nil

	case DoneMsg:
		m.done = true
		m.doneErr = msg.Err
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("prism · " + m.prompt))
	b.WriteString("\n")

	switch {
	case m.done && m.doneErr == nil:
		b.WriteString(SuccessStyle.Render("✓ completed"))
	case m.done:
		b.WriteString(ErrorStyle.Render("✗ " + m.doneErr.Error()))
	case m.thought != "":
		b.WriteString(m.spinner.View() + ThoughtStyle.Render(m.thought))
	default:
		b.WriteString(m.spinner.View() + ThoughtStyle.Render("waiting for events"))
	}
	b.WriteString("\n")

	if m.code != "" {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Code:"))
		b.WriteString("\n")
		if m.ready {
			b.WriteString(BoxStyle.Render(m.viewport.View()))
		} else {
			b.WriteString(BoxStyle.Render(m.code))
		}
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Result:"),
			ValueStyle.Render(fmt.Sprintf("%d columns, %d rows",
				len(m.result.Columns), m.result.RowCount))))
	}

	for _, e := range m.errs {
		b.WriteString(ErrorStyle.Render("! " + e))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("Press q or Ctrl+C to quit"))
	return b.String()
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
