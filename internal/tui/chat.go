// internal/tui/chat.go
// Package tui implements the interactive tutoring interface: a scrollback
// viewport over the conversation, a single-line input, and live streaming
// of answer fragments as the engine produces them.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/engine"
	"github.com/chemalabs/chema/internal/prompt"
	"github.com/chemalabs/chema/internal/stoich"
	"github.com/chemalabs/chema/internal/util"
)

// Answerer is the TUI-facing subset of the answer engine.
type Answerer interface {
	Answer(ctx context.Context, req engine.Request, onFragment func(string) error) engine.AnswerResult
}

type fragmentMsg struct{ text string }

type answerDoneMsg struct{ result engine.AnswerResult }

// message is one rendered conversation entry.
type message struct {
	role     string
	content  string
	footnote string
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	cfg       *appconfig.Config
	eng       Answerer
	input     textinput.Model
	viewport  viewport.Model
	messages  []message
	mode      prompt.Mode
	streamCh  chan tea.Msg
	streaming bool
	ready     bool
	status    string
}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	footnoteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// New creates the chat model seeded with the greeting message.
func New(cfg *appconfig.Config, eng Answerer) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Nhập câu hỏi hoặc phương trình phản ứng..."
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		cfg:      cfg,
		eng:      eng,
		input:    ti,
		viewport: viewport.New(0, 0),
		messages: []message{{role: "assistant", content: prompt.GreetingMessage}},
		status:   "Gõ /mode slow|advanced|crash|practice|fun để đổi cách giảng. Ctrl+C để thoát.",
	}
}

// Run starts the chat interface and blocks until the user quits.
func Run(cfg *appconfig.Config, eng Answerer) error {
	p := tea.NewProgram(New(cfg, eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		reserved := 5 // title + bordered input + status
		m.viewport.Width = msg.Width
		m.viewport.Height = maxInt(3, msg.Height-reserved)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}

	case fragmentMsg:
		m.appendFragment(msg.text)
		m.refreshViewport()
		return m, waitForStream(m.streamCh)

	case answerDoneMsg:
		m.finishAnswer(msg.result)
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit dispatches the typed line: slash commands locally, everything
// else to the engine.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.streaming {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")

	if name, ok := strings.CutPrefix(text, "/mode"); ok {
		m.mode = prompt.ParseMode(strings.TrimSpace(name))
		if m.mode == prompt.ModeDefault {
			m.status = "Chế độ mặc định."
		} else {
			m.status = fmt.Sprintf("Đã chuyển sang chế độ %s.", m.mode)
		}
		return m, nil
	}

	m.messages = append(m.messages,
		message{role: "user", content: text},
		message{role: "assistant"},
	)
	m.streaming = true
	m.status = "Đang trả lời..."
	m.refreshViewport()

	ch := make(chan tea.Msg, 16)
	m.streamCh = ch
	eng, mode := m.eng, m.mode
	go func() {
		res := eng.Answer(context.Background(), engine.Request{Question: text, Mode: mode}, func(fragment string) error {
			ch <- fragmentMsg{text: fragment}
			return nil
		})
		ch <- answerDoneMsg{result: res}
		close(ch)
	}()
	return m, waitForStream(ch)
}

// waitForStream delivers the next stream event to Update.
func waitForStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) appendFragment(text string) {
	if len(m.messages) == 0 {
		return
	}
	last := &m.messages[len(m.messages)-1]
	if last.role != "assistant" {
		return
	}
	last.content += text
}

func (m *Model) finishAnswer(res engine.AnswerResult) {
	m.streaming = false
	m.status = "Sẵn sàng."
	if len(m.messages) == 0 {
		return
	}
	last := &m.messages[len(m.messages)-1]
	if last.content == "" {
		last.content = res.FinalText
	}
	last.footnote = footnote(res)
}

// footnote summarizes how the answer was produced.
func footnote(res engine.AnswerResult) string {
	switch res.Strategy {
	case engine.StrategyBalance:
		return "⚖️ Đã cân bằng phương trình.\n" + stoich.HintStoichiometry()
	case engine.StrategyBalanceError:
		return "⚖️ Không cân bằng được phương trình."
	case engine.StrategyRAG:
		labels := make([]string, len(res.Sources))
		for i, src := range res.Sources {
			label := src.Source
			if src.Section != "" {
				label += " · " + src.Section
			}
			labels[i] = util.TruncateRunes(label, 48)
		}
		return fmt.Sprintf("📚 Dựa trên tài liệu (độ liên quan %.2f): %s", res.TopScore, strings.Join(labels, "; "))
	case engine.StrategyModelOnly:
		return "💡 Trả lời từ kiến thức phổ thông của mô hình."
	case engine.StrategyError:
		return "⚠️ Có lỗi xảy ra khi tạo câu trả lời."
	default:
		return ""
	}
}

func (m *Model) refreshViewport() {
	width := maxInt(20, m.viewport.Width-2)
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.role {
		case "user":
			b.WriteString(userStyle.Render("Bạn:"))
		default:
			b.WriteString(assistantStyle.Render("ChemA:"))
		}
		b.WriteString("\n")
		b.WriteString(util.WrapToWidth(msg.content, width))
		if msg.footnote != "" {
			b.WriteString("\n")
			b.WriteString(footnoteStyle.Render(util.WrapToWidth(msg.footnote, width)))
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Đang khởi động..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("⚛️ ChemA – Trợ lý Hóa học THPT")
	return title + "\n" +
		m.viewport.View() + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(m.status)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
