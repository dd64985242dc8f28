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
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"supportbot/internal/domain"
)

// QueryPort is the TUI-facing subset of the query endpoint client.
type QueryPort interface {
	Query(ctx context.Context, query string) (*domain.QueryResponse, error)
}

// RequestState tracks whether a question is in flight. Only one may be outstanding.
type RequestState int

const (
	StateIdle RequestState = iota
	StateAwaitingResponse
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting-response"
	default:
		return fmt.Sprintf("RequestState(%d)", int(s))
	}
}

// ErrorReply is shown in place of an answer whenever a query fails, whatever the cause.
const ErrorReply = "Sorry, I encountered an error while processing your question. Please try again."

// ExampleQuestions are offered while the conversation is empty; alt+N submits the Nth one.
var ExampleQuestions = []string{
	"How do I create an NFT?",
	"What wallets does Crossmint support?",
	"How do I accept stablecoin payments?",
	"How do I get an API key?",
}

// Message is one conversation entry. Messages are appended and never modified.
type Message struct {
	ID        string
	Content   string
	IsUser    bool
	Sources   []domain.Source
	Timestamp time.Time
}

type answerMsg struct{ resp *domain.QueryResponse }

type failureMsg struct{ err error }

// Model is the Bubble Tea model for the chat client.
type Model struct {
	client   QueryPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	messages []Message
	state    RequestState
	ready    bool
	now      func() time.Time
}

// New creates a new chat model talking to client.
func New(client QueryPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the docs and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{client: client, input: ti, viewport: vp, spinner: sp, now: time.Now}
}

// State reports whether a request is outstanding.
func (m Model) State() RequestState { return m.state }

// Messages returns the conversation so far.
func (m Model) Messages() []Message { return m.messages }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and response events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := conversationBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 + 1 // header, input line, status, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil
	case answerMsg:
		m.messages = append(m.messages, Message{
			ID:        uuid.NewString(),
			Content:   msg.resp.Response,
			Sources:   msg.resp.Sources,
			Timestamp: m.now(),
		})
		return m.finishRequest()
	case failureMsg:
		log.Error().Err(msg.err).Msg("query failed")
		m.messages = append(m.messages, Message{
			ID:        uuid.NewString(),
			Content:   ErrorReply,
			Timestamp: m.now(),
		})
		return m.finishRequest()
	case spinner.TickMsg:
		if m.state != StateAwaitingResponse {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.state == StateAwaitingResponse {
			return m, nil
		}
		switch key := msg.String(); key {
		case "enter":
			return m.Submit(m.input.Value())
		case "alt+1", "alt+2", "alt+3", "alt+4":
			return m.SelectExample(int(key[len(key)-1] - '1'))
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Submit sends text as a question. It does nothing while a request is outstanding
// or when text is blank.
func (m Model) Submit(text string) (Model, tea.Cmd) {
	q := strings.TrimSpace(text)
	if m.state != StateIdle || q == "" {
		return m, nil
	}
	m.messages = append(m.messages, Message{
		ID:        uuid.NewString(),
		Content:   q,
		IsUser:    true,
		Timestamp: m.now(),
	})
	m.state = StateAwaitingResponse
	m.input.Reset()
	m.input.Blur()
	m.refresh()
	return m, tea.Batch(m.ask(q), m.spinner.Tick)
}

// SelectExample submits the i-th example question in one step.
func (m Model) SelectExample(i int) (Model, tea.Cmd) {
	if i < 0 || i >= len(ExampleQuestions) {
		return m, nil
	}
	return m.Submit(ExampleQuestions[i])
}

func (m Model) ask(q string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		resp, err := client.Query(context.Background(), q)
		if err != nil {
			return failureMsg{err: err}
		}
		return answerMsg{resp: resp}
	}
}

func (m Model) finishRequest() (tea.Model, tea.Cmd) {
	m.state = StateIdle
	cmd := m.input.Focus()
	m.refresh()
	return m, cmd
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Documentation Support Bot")
	conversation := conversationBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	var status string
	if m.state == StateAwaitingResponse {
		status = statusStyle.Render(m.spinner.View() + " Thinking...")
	} else {
		status = hintStyle.Render("enter send · alt+1..4 example questions · pgup/pgdown scroll · ctrl+c quit")
	}
	return header + "\n" + conversation + "\n" + input + "\n" + status
}

func (m Model) renderConversation() string {
	width := max(10, m.viewport.Width-2)
	if len(m.messages) == 0 {
		var b strings.Builder
		b.WriteString("Hi! Ask me anything about the documentation. Try one of these:\n\n")
		for i, q := range ExampleQuestions {
			b.WriteString(exampleStyle.Render(fmt.Sprintf("alt+%d  %s", i+1, q)))
			b.WriteString("\n")
		}
		return b.String()
	}
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		label := assistantLabelStyle.Render("Assistant")
		if msg.IsUser {
			label = userLabelStyle.Render("You")
		}
		b.WriteString(label + " " + timeStyle.Render(msg.Timestamp.Format("15:04")) + "\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(msg.Content))
		b.WriteString("\n")
		for j, src := range msg.Sources {
			line := fmt.Sprintf("[%d] %s (%.2f) %s", j+1, src.Title, src.RelevanceScore, src.URL)
			b.WriteString(sourceStyle.Width(width).Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

var (
	headerStyle          = lipgloss.NewStyle().Bold(true)
	conversationBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userLabelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	timeStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)
	exampleStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
