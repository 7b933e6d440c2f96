// internal/tui/chat_test.go
package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/engine"
	"github.com/chemalabs/chema/internal/prompt"
)

// fakeAnswerer records the request and replays scripted fragments.
type fakeAnswerer struct {
	fragments []string
	result    engine.AnswerResult
	lastReq   engine.Request
}

func (f *fakeAnswerer) Answer(ctx context.Context, req engine.Request, onFragment func(string) error) engine.AnswerResult {
	f.lastReq = req
	for _, frag := range f.fragments {
		if err := onFragment(frag); err != nil {
			break
		}
	}
	return f.result
}

func newTestModel(ans Answerer) Model {
	cfg := appconfig.Default()
	m := New(&cfg, ans)
	m.ready = true
	m.viewport.Width = 80
	m.viewport.Height = 20
	return m
}

func drainStream(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestSubmitStreamsAnswer(t *testing.T) {
	ans := &fakeAnswerer{
		fragments: []string{"Este ", "là hợp chất."},
		result:    engine.AnswerResult{FinalText: "Este là hợp chất.", Strategy: engine.StrategyModelOnly},
	}
	m := newTestModel(ans)
	m.input.SetValue("este là gì?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !m.streaming {
		t.Fatal("expected streaming state after submit")
	}
	m = drainStream(t, m, cmd)

	if m.streaming {
		t.Fatal("expected stream to finish")
	}
	last := m.messages[len(m.messages)-1]
	if last.role != "assistant" || last.content != "Este là hợp chất." {
		t.Fatalf("unexpected final message: %+v", last)
	}
	if !strings.Contains(last.footnote, "kiến thức phổ thông") {
		t.Fatalf("unexpected footnote: %q", last.footnote)
	}
	if ans.lastReq.Question != "este là gì?" {
		t.Fatalf("unexpected request: %+v", ans.lastReq)
	}
}

func TestModeCommandSwitchesRegister(t *testing.T) {
	ans := &fakeAnswerer{result: engine.AnswerResult{Strategy: engine.StrategyModelOnly}}
	m := newTestModel(ans)

	m.input.SetValue("/mode slow")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.mode != prompt.ModeSlow {
		t.Fatalf("expected slow mode, got %q", m.mode)
	}

	m.input.SetValue("hỏi")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drainStream(t, next.(Model), cmd)
	if ans.lastReq.Mode != prompt.ModeSlow {
		t.Fatalf("expected slow mode on request, got %q", ans.lastReq.Mode)
	}
}

func TestBalanceFootnoteCarriesHints(t *testing.T) {
	got := footnote(engine.AnswerResult{Strategy: engine.StrategyBalance})
	if !strings.Contains(got, "Cân bằng") && !strings.Contains(got, "Gợi ý nhanh") {
		t.Fatalf("expected balance hint footnote, got %q", got)
	}
}

func TestGreetingSeedsConversation(t *testing.T) {
	m := newTestModel(&fakeAnswerer{})
	if len(m.messages) != 1 || m.messages[0].role != "assistant" {
		t.Fatalf("expected greeting message, got %+v", m.messages)
	}
	if !strings.Contains(m.messages[0].content, "Xin chào") {
		t.Fatalf("unexpected greeting: %q", m.messages[0].content)
	}
}

func TestSubmitIgnoredWhileStreaming(t *testing.T) {
	m := newTestModel(&fakeAnswerer{})
	m.streaming = true
	m.input.SetValue("câu hỏi khác")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd != nil || len(m.messages) != 1 {
		t.Fatal("submit during streaming must be a no-op")
	}
}
