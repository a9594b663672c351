// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/logging"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history to file (0600).
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		logging.L.Debug("save chat history", "error", err)
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

const chatHelp = `Commands:
  /new, /clear   Start a new conversation
  /id            Show the history id of this conversation
  /help, /h      Show this help
  /quit, /q      Exit (Ctrl+D also exits)
Ctrl+C cancels the answer being streamed.`

// HandleChat handles "askr chat".
func HandleChat(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, args.Quiet); err != nil {
		return err
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	reader := NewChatCLI()
	defer reader.Close()

	return runChat(context.Background(), app, reader, args.Quiet, true)
}

// runChat is the REPL loop. With interruptible set, Ctrl+C cancels only the
// answer being streamed.
func runChat(ctx context.Context, app *App, reader lineReader, quiet, interruptible bool) error {
	if !quiet {
		fmt.Fprintln(stdout, TitleStyle.Render("askr chat")+" "+DimStyle.Render("(/help for commands)"))
	}

	for {
		input, err := reader.ReadInput(PromptStyle.Render("> "))
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(stdout, DimStyle.Render("(use /quit to exit)"))
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(stdout)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line := strings.TrimSpace(input)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := chatCommand(app, line); quit {
				return nil
			}
			continue
		}

		turnCtx, stop := ctx, context.CancelFunc(func() {})
		if interruptible {
			turnCtx, stop = signal.NotifyContext(ctx, os.Interrupt)
		}
		err = runAsk(turnCtx, app, line, askOptions{Quiet: quiet, Width: GetTerminalWidth()})
		stop()

		switch {
		case err == nil:
		case isInterrupt(err):
			fmt.Fprintln(stdout, DimStyle.Render("\n(cancelled)"))
			// Drop the half-finished exchange so the next question starts clean.
			app.Session.NewChat()
		default:
			var reported reportedError
			if !errors.As(err, &reported) {
				DisplayError(err, false)
			}
		}
		fmt.Fprintln(stdout)
	}
}

// chatCommand runs a slash command and reports whether to quit.
func chatCommand(app *App, line string) bool {
	name := strings.ToLower(strings.Fields(line)[0])
	switch name {
	case "/quit", "/q", "/exit":
		return true
	case "/new", "/clear", "/c":
		app.Session.NewChat()
		fmt.Fprintln(stdout, SuccessStyle.Render("New conversation started."))
	case "/id":
		fmt.Fprintln(stdout, app.Session.ConversationID())
	case "/help", "/h", "/?":
		fmt.Fprintln(stdout, chatHelp)
	default:
		fmt.Fprintf(stdout, "%s unknown command %s (try /help)\n", ErrorStyle.Render("[!]"), name)
	}
	return false
}
