// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/session"
	"github.com/jeranaias/askr/internal/ui/components"
	"github.com/jeranaias/askr/internal/ui/styles"
)

// DefaultQuestion is asked when Enter is pressed on an empty input.
const DefaultQuestion = "list of top 10 singers, give table"

// Layout rows outside the viewport: header, separator, input, status bar.
const reservedRows = 4

// Options configures a chat Model.
type Options struct {
	Theme *styles.Theme

	// MaxSources limits listed sources per answer. 0 uses the default.
	MaxSources int

	// WordWrap caps the transcript width. 0 uses the terminal width.
	WordWrap int

	// InitialQuestion is sent as soon as the program starts.
	InitialQuestion string

	// ConfigUpdates delivers reloaded configuration.
	ConfigUpdates <-chan *config.Config
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	sess  *session.Session
	ctx   context.Context
	theme *styles.Theme
	keys  KeyMap

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	// Dimensions
	width  int
	height int

	maxSources    int
	wordWrap      int
	initial       string
	configUpdates <-chan *config.Config

	status   string
	showHelp bool
}

// New creates a chat model driving sess. ctx bounds every question asked.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = theme.InputPrompt.Render("> ")
	ti.Placeholder = "Ask anything..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.SpinnerFrames,
		FPS:    time.Second / 10,
	}

	return Model{
		sess:          sess,
		ctx:           ctx,
		theme:         theme,
		keys:          DefaultKeyMap(),
		viewport:      vp,
		input:         ti,
		spinner:       sp,
		help:          help.New(),
		width:         80,
		height:        24,
		maxSources:    opts.MaxSources,
		wordWrap:      opts.WordWrap,
		initial:       strings.TrimSpace(opts.InitialQuestion),
		configUpdates: opts.ConfigUpdates,
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the background listeners and sends the initial question.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		waitForStore(m.sess.Store().Updates()),
	}
	if m.configUpdates != nil {
		cmds = append(cmds, waitForConfig(m.configUpdates))
	}
	if m.initial != "" {
		q := m.initial
		cmds = append(cmds, func() tea.Msg { return SubmitMsg{Question: q} })
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SubmitMsg:
		return m.submit(msg.Question)

	case StoreUpdatedMsg:
		m.refresh()
		return m, waitForStore(m.sess.Store().Updates())

	case TurnDoneMsg:
		m.status = ""
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink

	case ConfigChangedMsg:
		m.applyConfig(msg.Config)
		return m, waitForConfig(m.configUpdates)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.sess.Store().OpenID() != "" {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout()
	m.refresh()
	return m, nil
}

func (m *Model) layout() {
	vpHeight := m.height - reservedRows
	if m.showHelp {
		vpHeight -= 3
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = vpHeight
	m.input.Width = max(m.width-4, 10)
	m.help.Width = m.width
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.NewChat):
		m.sess.NewChat()
		m.status = "New chat"
		m.input.Reset()
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value())

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends question, or DefaultQuestion when it is blank.
func (m Model) submit(question string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(question) == "" {
		question = DefaultQuestion
	}

	turn, err := m.sess.Send(m.ctx, question)
	switch {
	case errors.Is(err, session.ErrBusy):
		m.status = "Still answering, please wait"
		return m, nil
	case err != nil:
		m.status = err.Error()
		logging.L.Warn("send failed", "error", err)
		return m, nil
	}

	m.status = "Answering..."
	m.input.Reset()
	m.input.Blur()
	m.refresh()
	m.viewport.GotoBottom()
	return m, waitForTurn(turn)
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.sess.Revealer().SetInterval(cfg.Reveal.Interval())
	m.maxSources = cfg.Conversation.MaxSourcesShown
	m.wordWrap = cfg.UI.WordWrap
	m.status = "Configuration reloaded"
	m.refresh()
	logging.L.Info("configuration applied", "reveal_delay_ms", cfg.Reveal.DelayMs)
}

// refresh re-renders the transcript, following the bottom when already there.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom()
	content := components.RenderTranscript(
		m.sess.Store().Messages(),
		m.contentWidth(),
		m.maxSources,
		m.spinner.View(),
		m.theme,
	)
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) contentWidth() int {
	w := m.width - 2
	if m.wordWrap > 0 && m.wordWrap < w {
		w = m.wordWrap
	}
	return w
}

// Status returns the current status line.
func (m Model) Status() string {
	return m.status
}

// Transcript returns the rendered conversation.
func (m Model) Transcript() string {
	return components.RenderTranscript(m.sess.Store().Messages(), m.contentWidth(), m.maxSources, "", m.theme)
}
