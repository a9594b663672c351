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
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/session"
	"github.com/jeranaias/askr/internal/ui/components"
	"github.com/jeranaias/askr/internal/ui/styles"
)

// reportedError has already been shown to the user; Run only uses it for
// the exit code.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// HandleAsk handles "askr ask QUESTION".
func HandleAsk(args Args) error {
	question := strings.TrimSpace(args.Query)
	if question == "" {
		return ErrMissingArgument("question", `askr ask "what is a goroutine?"`)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, args.Quiet || args.JSON); err != nil {
		return err
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	markdown := !args.JSON && cfg.UI.Markdown && IsStdoutTTY()
	return runAsk(ctx, app, question, askOptions{
		JSON:     args.JSON,
		Quiet:    args.Quiet,
		Markdown: markdown,
		Width:    GetTerminalWidth(),
	})
}

type askOptions struct {
	JSON     bool
	Quiet    bool
	Markdown bool
	Width    int
}

// runAsk sends question and writes the answer to stdout.
func runAsk(ctx context.Context, app *App, question string, opts askOptions) error {
	sess := app.Session
	if opts.JSON || opts.Markdown {
		// Nothing is shown until the answer is complete.
		sess.Revealer().SetInterval(0)
	}

	start := time.Now()
	turn, err := sess.Send(ctx, question)
	if err != nil {
		return err
	}

	var answer model.Message
	if opts.JSON || opts.Markdown {
		answer, err = waitTurn(ctx, sess, turn)
	} else {
		answer, err = streamTurn(ctx, sess, turn, stdout)
	}
	if err != nil {
		return err
	}
	if turn.Err() != nil {
		err = turn.Err()
	}

	if opts.JSON {
		data := AskData{
			Question:       question,
			Answer:         answer.Text,
			Plan:           answer.Plan,
			Sources:        answer.Sources,
			ConversationID: sess.ConversationID(),
			DurationMs:     time.Since(start).Milliseconds(),
		}
		if data.Sources == nil {
			data.Sources = []model.Source{}
		}
		if err != nil {
			NewJSONErrorResponse("ask", data, err).Print()
			return reportedError{err}
		}
		return NewJSONResponse("ask", data).Print()
	}

	if opts.Markdown {
		fmt.Fprintln(stdout, renderMarkdown(answer.Text, opts.Width))
	} else if !strings.HasSuffix(answer.Text, "\n") {
		fmt.Fprintln(stdout)
	}

	if !opts.Quiet {
		printAnswerDetails(stdout, answer, app.Config.Conversation.MaxSourcesShown, opts.Width)
	}
	if err != nil {
		// The failure is already part of the answer text.
		return reportedError{err}
	}
	return nil
}

// streamTurn copies revealed text to w as it arrives.
func streamTurn(ctx context.Context, sess *session.Session, turn *session.Turn, w io.Writer) (model.Message, error) {
	store := sess.Store()
	written := 0
	flush := func() model.Message {
		msg, _ := store.Get(turn.AssistantID)
		if len(msg.Text) > written {
			io.WriteString(w, msg.Text[written:])
			written = len(msg.Text)
		}
		return msg
	}

	for {
		select {
		case <-store.Updates():
			flush()
		case <-turn.Done():
			return flush(), nil
		case <-ctx.Done():
			flush()
			return model.Message{}, ctx.Err()
		}
	}
}

// waitTurn blocks until the answer is closed.
func waitTurn(ctx context.Context, sess *session.Session, turn *session.Turn) (model.Message, error) {
	select {
	case <-turn.Done():
		msg, _ := sess.Store().Get(turn.AssistantID)
		return msg, nil
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}

// printAnswerDetails prints the plan and the numbered sources.
func printAnswerDetails(w io.Writer, answer model.Message, maxSources, width int) {
	theme := cliTheme()
	if answer.Plan != "" {
		fmt.Fprintf(w, "\n%s %s\n", TitleStyle.Render("Plan:"), PlanStyle.Render(answer.Plan))
	}
	if list := components.RenderSources(answer.Sources, maxSources, width, theme); list != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", TitleStyle.Render("Sources:"), list)
	}
}

// cliTheme returns the colored theme only when colors are enabled.
func cliTheme() *styles.Theme {
	if ColorsEnabled() {
		return styles.NewTheme()
	}
	return styles.PlainTheme()
}

// renderMarkdown renders text with glamour, falling back to the raw text.
func renderMarkdown(text string, width int) string {
	if width <= 0 || width > 120 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// isInterrupt reports whether err came from Ctrl-C.
func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled)
}
