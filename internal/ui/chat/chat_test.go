// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/session"
	"github.com/jeranaias/askr/internal/ui/styles"
	"github.com/jeranaias/askr/internal/upstream"
)

type recordingAsker struct {
	mu        sync.Mutex
	questions []string
	body      string
	release   chan struct{}
}

func (a *recordingAsker) Ask(ctx context.Context, q string) (*upstream.Response, error) {
	a.mu.Lock()
	a.questions = append(a.questions, q)
	a.mu.Unlock()

	if a.release == nil {
		return &upstream.Response{Body: io.NopCloser(strings.NewReader(a.body)), Streaming: true}, nil
	}
	pr, pw := io.Pipe()
	go func() {
		io.WriteString(pw, a.body)
		select {
		case <-a.release:
			pw.Close()
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
		}
	}()
	return &upstream.Response{Body: pr, Streaming: true}, nil
}

func (a *recordingAsker) asked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.questions...)
}

func newModel(t *testing.T, asker session.Asker, opts Options) Model {
	t.Helper()
	sess := session.New(asker, session.Config{RevealInterval: 0})
	t.Cleanup(sess.Close)
	opts.Theme = styles.PlainTheme()
	m := New(context.Background(), sess, opts)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runTurn(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		updated, _ := m.Update(msg)
		return updated.(Model)
	case <-time.After(5 * time.Second):
		t.Fatal("turn did not finish")
		return m
	}
}

func TestEnterOnEmptyInputAsksDefaultQuestion(t *testing.T) {
	asker := &recordingAsker{body: "data: {\"text\":\"answer\"}\n\n"}
	m := newModel(t, asker, Options{})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.input.Focused())
	m = runTurn(t, m, cmd)

	assert.Equal(t, []string{DefaultQuestion}, asker.asked())
	assert.True(t, m.input.Focused())
	assert.Empty(t, m.Status())
	assert.Contains(t, m.Transcript(), DefaultQuestion)
	assert.Contains(t, m.Transcript(), "answer")
}

func TestTypedQuestionIsSent(t *testing.T) {
	asker := &recordingAsker{body: "data: {\"text\":\"fine\"}\n\n"}
	m := newModel(t, asker, Options{})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("how are you")})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runTurn(t, m, cmd)

	assert.Equal(t, []string{"how are you"}, asker.asked())
	assert.Empty(t, m.input.Value())
}

func TestSubmitWhileAnsweringIsRefused(t *testing.T) {
	asker := &recordingAsker{body: "data: {\"text\":\"partial\"}\n\n", release: make(chan struct{})}
	m := newModel(t, asker, Options{})

	updated, cmd := m.Update(SubmitMsg{Question: "first"})
	m = updated.(Model)
	require.NotNil(t, cmd)

	updated, second := m.Update(SubmitMsg{Question: "second"})
	m = updated.(Model)
	assert.Nil(t, second)
	assert.Equal(t, "Still answering, please wait", m.Status())
	require.Eventually(t, func() bool { return len(asker.asked()) == 1 },
		time.Second, time.Millisecond)

	close(asker.release)
	m = runTurn(t, m, cmd)
	assert.Empty(t, m.Status())
	assert.Equal(t, []string{"first"}, asker.asked())
}

func TestNewChatClearsTranscript(t *testing.T) {
	asker := &recordingAsker{body: "data: {\"text\":\"hello\"}\n\n"}
	m := newModel(t, asker, Options{})

	updated, cmd := m.Update(SubmitMsg{Question: "hi"})
	m = runTurn(t, updated.(Model), cmd)
	require.Len(t, m.sess.Store().Messages(), 2)
	before := m.sess.ConversationID()

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Empty(t, m.sess.Store().Messages())
	assert.Equal(t, "New chat", m.Status())
	assert.NotEqual(t, before, m.sess.ConversationID())
	assert.Empty(t, m.Transcript())
}

func TestConfigChangeAppliesLive(t *testing.T) {
	m := newModel(t, &recordingAsker{}, Options{MaxSources: 9})

	cfg := config.Default()
	cfg.Reveal.DelayMs = 75
	cfg.Conversation.MaxSourcesShown = 3
	cfg.UI.WordWrap = 40

	updated, _ := m.Update(ConfigChangedMsg{Config: cfg})
	m = updated.(Model)
	assert.Equal(t, 75*time.Millisecond, m.sess.Revealer().Interval())
	assert.Equal(t, 3, m.maxSources)
	assert.Equal(t, 40, m.contentWidth())
	assert.Equal(t, "Configuration reloaded", m.Status())
}

func TestQuitKeys(t *testing.T) {
	m := newModel(t, &recordingAsker{}, Options{})
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := press(t, m, tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestHelpToggleShrinksViewport(t *testing.T) {
	m := newModel(t, &recordingAsker{}, Options{})
	h := m.viewport.Height
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.True(t, m.showHelp)
	assert.Less(t, m.viewport.Height, h)
}

func TestViewLayout(t *testing.T) {
	m := newModel(t, &recordingAsker{}, Options{})
	out := m.View()
	assert.True(t, strings.HasPrefix(out, "askr"))
	assert.Contains(t, out, "sk anything...")
	assert.Contains(t, out, "new chat")
}

func TestInitialQuestionIsScheduled(t *testing.T) {
	m := newModel(t, &recordingAsker{}, Options{InitialQuestion: "  deep link  "})
	assert.Equal(t, "deep link", m.initial)
	assert.NotNil(t, m.Init())
}

func TestContentWidth(t *testing.T) {
	tests := []struct {
		width, wrap, want int
	}{
		{80, 0, 78},
		{80, 60, 60},
		{50, 60, 48},
	}
	for _, tt := range tests {
		m := Model{width: tt.width, wordWrap: tt.wrap}
		assert.Equal(t, tt.want, m.contentWidth())
	}
}
