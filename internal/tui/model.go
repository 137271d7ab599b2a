package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"vacciassist/internal/domain"
	"vacciassist/internal/session"
)

// ChatPort is the TUI-facing subset of a session.
type ChatPort interface {
	Upload(ctx context.Context, name string, data []byte) (session.UploadResult, error)
	Ask(ctx context.Context, question string) (domain.Answer, error)
	Messages() []domain.Message
	Document() (session.DocumentInfo, bool)
	ClearHistory()
}

// Options configure the chat screen.
type Options struct {
	// Style is a glamour standard style name; empty means "dark".
	Style string
	// Now is the clock used by /schedule; nil means time.Now.
	Now func() time.Time
}

// Model is the Bubble Tea model for the chat application. The port is only
// touched from Update or from the single command in flight, so rendering
// works on snapshots.
type Model struct {
	port     ChatPort
	ctx      context.Context
	opts     Options
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	messages  []domain.Message
	sources   []domain.Segment
	lastQuery string
	document  string
	notice    string
	status    string
	busy      bool
	pending   string // file changed while busy
	ready     bool
}

// New creates a new chat model over port.
func New(ctx context.Context, port ChatPort, opts Options) Model {
	if opts.Style == "" {
		opts.Style = "dark"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about vaccines, or /help"
	ti.Focus()
	ti.CharLimit = 0
	m := Model{
		port:     port,
		ctx:      ctx,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		messages: port.Messages(),
		status:   "Ready. Type a question or /upload <file>.",
	}
	if doc, ok := port.Document(); ok {
		m.document = doc.Name
	}
	m.renderer = newRenderer(opts.Style, 80)
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and command result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around the chat and input boxes
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.renderer = newRenderer(m.opts.Style, max(20, msg.Width-4))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if m.busy {
				m.status = "Still working on the previous request..."
				return m, nil
			}
			m.input.Reset()
			return m.dispatch(line)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case answerMsg:
		m.busy = false
		m.messages = msg.messages
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.sources = msg.answer.Sources
			if msg.answer.Grounded {
				m.status = fmt.Sprintf("Answered from %s (%d passages).", m.document, len(msg.answer.Sources))
			} else {
				m.status = "Answered from general knowledge."
			}
		}
		m.refresh()
		return m.afterCommand()

	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Upload failed: " + msg.err.Error()
			return m.afterCommand()
		}
		m.document = msg.result.Document.Name
		m.sources = nil
		switch {
		case msg.result.Reused:
			m.status = fmt.Sprintf("%s is already indexed.", m.document)
		default:
			m.status = fmt.Sprintf("Indexed %s (%d segments).", m.document, msg.result.Document.Segments)
			if msg.result.Document.Summary != "" {
				m.notice = "Summary: " + msg.result.Document.Summary
			}
		}
		m.refresh()
		return m.afterCommand()

	case exportMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Transcript written to " + msg.path
		}
		return m.afterCommand()

	case FileChangedMsg:
		if m.busy {
			m.pending = msg.Path
			return m, nil
		}
		return m.startUpload(msg.Path)

	case WatchErrorMsg:
		m.status = "Watch error: " + msg.Err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch runs a slash command or asks a question.
func (m Model) dispatch(line string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(line, "/") {
		m.lastQuery = line
		m.messages = append(m.messages, domain.UserMessage(line))
		m.refresh()
		return m.start("Thinking...", askCmd(m.ctx, m.port, line))
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/upload":
		if arg == "" {
			m.status = "Usage: /upload <path>"
			return m, nil
		}
		return m.startUpload(arg)
	case "/clear":
		m.port.ClearHistory()
		m.messages = m.port.Messages()
		m.sources = nil
		m.notice = ""
		m.status = "Conversation cleared."
		m.refresh()
		return m, nil
	case "/export":
		if arg == "" {
			m.status = "Usage: /export <file.pdf|file.md>"
			return m, nil
		}
		return m.start("Exporting...", exportCmd(arg, m.port.Messages()))
	case "/schedule":
		m.notice, m.status = scheduleNotice(arg, m.opts.Now())
		m.refresh()
		return m, nil
	case "/help":
		m.notice = helpText
		m.refresh()
		return m, nil
	}
	m.status = fmt.Sprintf("Unknown command %s. Try /help.", name)
	return m, nil
}

func (m Model) startUpload(path string) (tea.Model, tea.Cmd) {
	return m.start("Indexing "+path+"...", uploadCmd(m.ctx, m.port, path))
}

func (m Model) start(status string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = status
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// afterCommand replays a file change that arrived while busy.
func (m Model) afterCommand() (tea.Model, tea.Cmd) {
	if m.pending == "" {
		return m, nil
	}
	path := m.pending
	m.pending = ""
	return m.startUpload(path)
}

// View renders the header, conversation, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	doc := "no document"
	if m.document != "" {
		doc = "document: " + m.document
	}
	header := headerStyle.Render("Vacci-Assist") + "  " + mutedStyle.Render(doc)
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		chatBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	var b strings.Builder
	for _, msg := range m.messages {
		if msg.Role == domain.RoleUser {
			b.WriteString(userStyle.Render("You: "+msg.Content) + "\n\n")
			continue
		}
		b.WriteString(assistantLabelStyle.Render("Vacci-Assist") + "\n")
		b.WriteString(m.renderMarkdown(msg.Content))
		b.WriteString("\n")
	}
	if len(m.sources) > 0 {
		s := m.sources[0]
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Best passage (segment %d):", s.Index)) + "\n")
		b.WriteString(highlightBestSentence(s.Text, m.lastQuery) + "\n\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	return b.String()
}

func (m Model) renderMarkdown(s string) string {
	if m.renderer == nil {
		return s + "\n"
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s + "\n"
	}
	return out
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

const helpText = `Commands:
  /upload <path>          index a document (pdf, html, md, txt)
  /clear                  clear the conversation
  /export <file.pdf|.md>  save the transcript
  /schedule YYYY-MM-DD    vaccines due for a birth date
  ctrl+c                  quit`

var (
	chatBoxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle         = lipgloss.NewStyle().Bold(true)
	mutedStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	noticeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)
