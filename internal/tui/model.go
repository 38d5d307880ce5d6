package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docassist/internal/chat"
	"docassist/internal/service"
)

// ChatPort runs one conversation turn.
type ChatPort interface {
	Handle(ctx context.Context, st *chat.State, msg string) (chat.Reply, error)
}

// DocumentsPort is the document pipeline as seen by the TUI.
type DocumentsPort interface {
	IngestFile(ctx context.Context, name string, data []byte) (service.IngestReport, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (service.Status, error)
}

const helpText = `Ask a question about your documents, or ask to book an appointment or a callback.
Commands:
  /upload <path> [path...]  add documents (txt, md, pdf, docx)
  /status                   show indexed files and vectors
  /clear-chat               forget this conversation
  /clear-data               delete all embeddings and files (asks twice)
  /help                     show this help
  /quit                     exit`

type role int

const (
	roleUser role = iota
	roleAssistant
	roleSystem
)

type entry struct {
	role role
	text string
}

type replyMsg struct {
	reply chat.Reply
	err   error
}

type ingestMsg struct {
	path   string
	report service.IngestReport
	err    error
	last   bool
}

type clearedMsg struct{ err error }

type statusMsg struct {
	status service.Status
	err    error
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	docs     DocumentsPort
	state    *chat.State
	readFile func(string) ([]byte, error)

	input    textinput.Model
	viewport viewport.Model
	entries  []entry
	status   string
	busy     bool
	ready    bool

	confirmClear bool
}

// New creates a chat model bound to one conversation state.
func New(ctx context.Context, chatPort ChatPort, docs DocumentsPort, state *chat.State) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or type /help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		chat:     chatPort,
		docs:     docs,
		state:    state,
		readFile: os.ReadFile,
		input:    ti,
		viewport: vp,
		entries:  []entry{{roleSystem, helpText}},
		status:   "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and async result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 + bh // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			return m.submit(text)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.add(roleSystem, "Error: "+msg.err.Error())
			m.status = "Request failed."
		} else {
			text := msg.reply.Text
			if len(msg.reply.Sources) > 0 {
				text += "\n\n" + sourceStyle.Render("Sources: "+strings.Join(msg.reply.Sources, ", "))
			}
			m.add(roleAssistant, text)
			m.status = "Ready."
			if msg.reply.Retryable {
				m.status = "Temporary failure. Please send your message again."
			}
		}
		m.refresh()
		return m, nil

	case ingestMsg:
		m.busy = !msg.last
		if msg.err != nil {
			m.add(roleSystem, fmt.Sprintf("❌ Could not process %s: %v", filepath.Base(msg.path), msg.err))
		} else {
			m.add(roleSystem, renderReport(msg.report))
		}
		if msg.last {
			m.status = "Ready."
		}
		m.refresh()
		return m, nil

	case clearedMsg:
		m.busy = false
		if msg.err != nil {
			m.add(roleSystem, "❌ Error clearing data: "+msg.err.Error())
		} else {
			m.state.ClearHistory()
			m.add(roleSystem, "✅ All data cleared successfully!")
		}
		m.status = "Ready."
		m.refresh()
		return m, nil

	case statusMsg:
		m.busy = false
		if msg.err != nil {
			m.add(roleSystem, "❌ Status unavailable: "+msg.err.Error())
		} else {
			m.add(roleSystem, renderStatus(msg.status))
		}
		m.status = "Ready."
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	cmd, args := splitCommand(text)
	if cmd != "/clear-data" {
		m.confirmClear = false
	}
	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/help":
		m.add(roleSystem, helpText)
	case "/clear-chat":
		m.state.ClearHistory()
		m.entries = nil
		m.add(roleSystem, "Chat history cleared!")
	case "/clear-data":
		if !m.confirmClear {
			m.confirmClear = true
			m.add(roleSystem, "⚠️ This will delete all embeddings and files. Type /clear-data again to confirm.")
			break
		}
		m.confirmClear = false
		m.busy = true
		m.status = "Clearing all data..."
		m.refresh()
		return m, m.clearCmd()
	case "/status":
		m.busy = true
		m.status = "Loading status..."
		return m, m.statusCmd()
	case "/upload":
		if len(args) == 0 {
			m.add(roleSystem, "Usage: /upload <path> [path...]")
			break
		}
		m.busy = true
		m.status = fmt.Sprintf("Processing %d file(s)...", len(args))
		m.refresh()
		cmds := make([]tea.Cmd, len(args))
		for i, p := range args {
			cmds[i] = m.ingestCmd(p, i == len(args)-1)
		}
		if len(cmds) == 1 {
			return m, cmds[0]
		}
		return m, tea.Sequence(cmds...)
	case "":
		m.add(roleUser, text)
		m.busy = true
		m.status = "Thinking..."
		m.refresh()
		return m, m.chatCmd(text)
	default:
		m.add(roleSystem, fmt.Sprintf("Unknown command %s. Type /help.", cmd))
	}
	m.refresh()
	return m, nil
}

func (m Model) chatCmd(text string) tea.Cmd {
	ctx, port, st := m.ctx, m.chat, m.state
	return func() tea.Msg {
		reply, err := port.Handle(ctx, st, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) ingestCmd(path string, last bool) tea.Cmd {
	ctx, docs, read := m.ctx, m.docs, m.readFile
	return func() tea.Msg {
		data, err := read(path)
		if err != nil {
			return ingestMsg{path: path, err: err, last: last}
		}
		report, err := docs.IngestFile(ctx, filepath.Base(path), data)
		return ingestMsg{path: path, report: report, err: err, last: last}
	}
}

func (m Model) clearCmd() tea.Cmd {
	ctx, docs := m.ctx, m.docs
	return func() tea.Msg { return clearedMsg{err: docs.Clear(ctx)} }
}

func (m Model) statusCmd() tea.Cmd {
	ctx, docs := m.ctx, m.docs
	return func() tea.Msg {
		st, err := docs.Stats(ctx)
		return statusMsg{status: st, err: err}
	}
}

// splitCommand returns ("", nil) for plain chat text.
func splitCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	parts := strings.Fields(text)
	return strings.ToLower(parts[0]), parts[1:]
}

func (m *Model) add(r role, text string) {
	m.entries = append(m.entries, entry{role: r, text: text})
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Document Assistant")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		var label string
		switch e.role {
		case roleUser:
			label = userStyle.Render("You")
		case roleAssistant:
			label = assistantStyle.Render("Assistant")
		default:
			label = systemStyle.Render("System")
		}
		body := lipgloss.NewStyle().Width(width).Render(e.text)
		blocks = append(blocks, label+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

func renderReport(r service.IngestReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Processed %s: %d characters, %d chunks, %d upserted", r.Source, r.Characters, r.Chunks, r.Upserted)
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Failed)
	}
	if r.Summary != "" {
		b.WriteString("\n\nSummary: " + r.Summary)
	}
	return b.String()
}

func renderStatus(st service.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📁 Raw files: %d\n📄 Processed files: %d\n", len(st.RawFiles), len(st.ProcessedFiles))
	if st.VectorsKnown {
		fmt.Fprintf(&b, "🔢 Vectors: %d\n", st.Vectors)
	}
	fmt.Fprintf(&b, "🧠 Embedder: %s", st.Embedder)
	for _, f := range st.RawFiles {
		b.WriteString("\n  • " + f)
	}
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	systemStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
