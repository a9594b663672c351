// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/session"
	"github.com/jeranaias/askr/internal/storage"
	"github.com/jeranaias/askr/internal/upstream"
)

// =============================================================================
// HELPERS
// =============================================================================

const answerStream = "data: {\"blocks\":[{\"intended_usage\":\"pro_search_steps\",\"plan_block\":{\"description\":\"Searching the web\"}}]}\n\n" +
	"data: {\"blocks\":[{\"intended_usage\":\"web_results\",\"diff_block\":{\"field\":\"web_result_block\"," +
	"\"patches\":[{\"op\":\"add\",\"value\":{\"web_results\":[{\"name\":\"Go\",\"url\":\"https://go.dev\"}]}}]}}]}\n\n" +
	"data: {\"text\":\"Go is\"}\n\n" +
	"data: {\"answer_text\":\"a language.\"}\n\n" +
	"data: [DONE]\n\n"

func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// captureOutput redirects stdout and stderr for the rest of the test.
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return &out, &errOut
}

func newTestApp(t *testing.T, endpoint string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Upstream.Endpoint = endpoint
	cfg.Reveal.DelayMs = 0
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	app, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

type scriptedReader struct {
	lines []string
}

func (r *scriptedReader) ReadInput(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() {}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		cmd  Command
		want Args
	}{
		{"no args", nil, CmdTUI, Args{}},
		{"deep link", []string{"--q", "top singers"}, CmdTUI, Args{Query: "top singers"}},
		{"deep link equals", []string{"--q=top singers"}, CmdTUI, Args{Query: "top singers"}},
		{"bare words", []string{"whats", "up"}, CmdTUI, Args{Query: "whats up", Raw: []string{"whats", "up"}}},
		{
			"ask with json anywhere", []string{"ask", "what", "is", "go", "--json"}, CmdAsk,
			Args{JSON: true, Query: "what is go", Raw: []string{"what", "is", "go"}},
		},
		{
			"history show", []string{"history", "show", "abc"}, CmdHistory,
			Args{Subcommand: "show", ConfigKey: "abc", Raw: []string{"show", "abc"}},
		},
		{
			"config set", []string{"config", "set", "ui.word_wrap", "100"}, CmdConfig,
			Args{Subcommand: "set", ConfigKey: "ui.word_wrap", ConfigVal: "100", Raw: []string{"set", "ui.word_wrap", "100"}},
		},
		{"verbose version", []string{"-v", "version"}, CmdVersion, Args{Verbose: true, Raw: []string{}}},
		{"endpoint chat", []string{"--endpoint=http://localhost:8080", "chat"}, CmdChat, Args{Endpoint: "http://localhost:8080", Raw: []string{}}},
		{"help flag", []string{"--help"}, CmdHelp, Args{Raw: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.cmd, cmd)
			if len(tt.want.Raw) == 0 {
				assert.Empty(t, args.Raw)
				args.Raw, tt.want.Raw = nil, nil
			}
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "ask", CmdAsk.String())
	assert.Equal(t, "history", CmdHistory.String())
	assert.Equal(t, "unknown", Command(99).String())
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"List", "--limit", "5", "--json", "--since=2024-01-01", "extra", "words"}, "limit")

	assert.Equal(t, "list", p.Subcommand())
	assert.Equal(t, 5, p.FlagIntOrDefault("limit", 20))
	assert.True(t, p.BoolFlag("json"))
	assert.Equal(t, "2024-01-01", p.Flag("--since"))
	assert.Equal(t, "extra words", p.PositionalFrom(1))
	assert.Equal(t, 3, p.PositionalCount())
	assert.Equal(t, "", p.Positional(7))
	assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
}

func TestArgParser_BoolFlagDoesNotSwallowPositional(t *testing.T) {
	p := NewArgParser([]string{"show", "--json", "abc123"})
	assert.True(t, p.BoolFlag("json"))
	assert.Equal(t, "abc123", p.Positional(1))
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", &ValidationError{Field: "id", Reason: "missing"}, ExitUsageError},
		{"empty question", session.ErrEmptyQuestion, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("bad")}, ExitConfigError},
		{"not found", fmt.Errorf("show: %w", storage.ErrConversationNotFound), ExitNotFoundError},
		{"upstream status", &upstream.StatusError{Status: 502}, ExitNetworkError},
		{"idle timeout", upstream.ErrIdleTimeout, ExitTimeoutError},
		{"interrupt", context.Canceled, ExitInterrupted},
		{"reported", reportedError{&upstream.StatusError{Status: 500}}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	_, errOut := captureOutput(t)

	DisplayError(reportedError{errors.New("already shown")}, false)
	assert.Empty(t, errOut.String())

	DisplayError(errors.New("boom"), false)
	assert.Contains(t, errOut.String(), "boom")
}

func TestDisplayErrorJSON(t *testing.T) {
	out, _ := captureOutput(t)

	DisplayError(&upstream.StatusError{Status: 503}, true)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "network_error", got["error_type"])
	assert.Equal(t, float64(503), got["status"])
}

// =============================================================================
// ASK
// =============================================================================

func TestRunAsk_StreamsAnswerThenDetails(t *testing.T) {
	out, _ := captureOutput(t)
	app := newTestApp(t, sseServer(t, answerStream).URL)

	err := runAsk(context.Background(), app, "What is Go?", askOptions{Width: 80})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, " Go is a language.\n")
	assert.Contains(t, text, "Plan:")
	assert.Contains(t, text, "Searching the web")
	assert.Contains(t, text, "Sources:")
	assert.Contains(t, text, "https://go.dev")
}

func TestRunAsk_QuietPrintsOnlyAnswer(t *testing.T) {
	out, _ := captureOutput(t)
	app := newTestApp(t, sseServer(t, answerStream).URL)

	require.NoError(t, runAsk(context.Background(), app, "What is Go?", askOptions{Quiet: true}))
	assert.Equal(t, " Go is a language.\n", out.String())
}

func TestRunAsk_JSON(t *testing.T) {
	out, _ := captureOutput(t)
	app := newTestApp(t, sseServer(t, answerStream).URL)

	require.NoError(t, runAsk(context.Background(), app, "What is Go?", askOptions{JSON: true}))

	var resp struct {
		Success bool    `json:"success"`
		Data    AskData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, " Go is a language.", resp.Data.Answer)
	assert.Equal(t, "Searching the web", resp.Data.Plan)
	require.Len(t, resp.Data.Sources, 1)
	assert.Equal(t, "https://go.dev", resp.Data.Sources[0].URL)
	assert.Equal(t, app.Session.ConversationID(), resp.Data.ConversationID)
}

func TestRunAsk_UpstreamFailure(t *testing.T) {
	out, _ := captureOutput(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	app := newTestApp(t, srv.URL)

	err := runAsk(context.Background(), app, "q", askOptions{Quiet: true})
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
	assert.Contains(t, out.String(), "[Error]")
}

func TestHandleAsk_RequiresQuestion(t *testing.T) {
	err := HandleAsk(Args{Query: "   "})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// HISTORY
// =============================================================================

func TestRunHistory_Lifecycle(t *testing.T) {
	out, _ := captureOutput(t)
	app := newTestApp(t, sseServer(t, answerStream).URL)
	ctx := context.Background()

	require.NoError(t, runAsk(ctx, app, "What is Go?", askOptions{Quiet: true}))
	convID := app.Session.ConversationID()
	out.Reset()

	require.NoError(t, runHistory(ctx, app.History, Args{Raw: []string{"list"}}))
	assert.Contains(t, out.String(), "What is Go?")
	out.Reset()

	require.NoError(t, runHistory(ctx, app.History, Args{Raw: []string{"show", convID}}))
	assert.Contains(t, out.String(), "Go is a language.")
	out.Reset()

	exportPath := filepath.Join(t.TempDir(), "answer.md")
	require.NoError(t, runHistory(ctx, app.History, Args{Raw: []string{"export", convID, exportPath}}))
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "What is Go?")

	require.NoError(t, runHistory(ctx, app.History, Args{Raw: []string{"delete", convID}}))
	err = runHistory(ctx, app.History, Args{Raw: []string{"show", convID}})
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestRunHistory_ListJSONEmpty(t *testing.T) {
	out, _ := captureOutput(t)
	h, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, runHistory(context.Background(), h, Args{JSON: true}))
	var resp struct {
		Data []interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestRunHistory_Usage(t *testing.T) {
	h, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	assert.Equal(t, ExitUsageError, GetExitCode(runHistory(ctx, h, Args{Raw: []string{"frobnicate"}})))
	assert.Equal(t, ExitUsageError, GetExitCode(runHistory(ctx, h, Args{Raw: []string{"show"}})))
	assert.Equal(t, ExitUsageError, GetExitCode(runHistory(ctx, h, Args{Raw: []string{"export", "abc"}})))
}

// =============================================================================
// CONFIG
// =============================================================================

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ASKR_CONFIG_DIR", dir)
	for _, key := range []string{"ASKR_ENDPOINT", "ASKR_IDLE_TIMEOUT", "ASKR_REVEAL_DELAY_MS", "ASKR_LOG_LEVEL", "ASKR_HISTORY_PATH"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestHandleConfig_SetThenGet(t *testing.T) {
	dir := isolateConfig(t)
	out, _ := captureOutput(t)

	require.NoError(t, HandleConfig(Args{Subcommand: "set", ConfigKey: "reveal.delay_ms", ConfigVal: "55"}))
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	out.Reset()

	require.NoError(t, HandleConfig(Args{Subcommand: "get", ConfigKey: "reveal.delay_ms"}))
	assert.Equal(t, "55\n", out.String())
}

func TestHandleConfig_SetRejectsInvalid(t *testing.T) {
	dir := isolateConfig(t)
	captureOutput(t)

	err := HandleConfig(Args{Subcommand: "set", ConfigKey: "reveal.delay_ms", ConfigVal: "5000"})
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "config.toml"))

	err = HandleConfig(Args{Subcommand: "set", ConfigKey: "no.such_key", ConfigVal: "1"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleConfig_PathAndKeys(t *testing.T) {
	dir := isolateConfig(t)
	out, _ := captureOutput(t)

	require.NoError(t, HandleConfig(Args{Subcommand: "path"}))
	assert.Equal(t, filepath.Join(dir, "config.toml")+"\n", out.String())
	out.Reset()

	require.NoError(t, HandleConfig(Args{Subcommand: "keys"}))
	assert.Contains(t, out.String(), "upstream.endpoint\n")
}

func TestHandleConfig_ShowTOML(t *testing.T) {
	isolateConfig(t)
	out, _ := captureOutput(t)

	require.NoError(t, HandleConfig(Args{Subcommand: "show"}))
	assert.Contains(t, out.String(), "[reveal]")
	assert.Contains(t, out.String(), "delay_ms = 30")
}

// =============================================================================
// CHAT
// =============================================================================

func TestRunChat(t *testing.T) {
	out, _ := captureOutput(t)
	app := newTestApp(t, sseServer(t, answerStream).URL)
	firstID := app.Session.ConversationID()

	reader := &scriptedReader{lines: []string{"", "What is Go?", "/id", "/new", "/bogus", "/quit", "never sent"}}
	require.NoError(t, runChat(context.Background(), app, reader, true, false))

	text := out.String()
	assert.Contains(t, text, " Go is a language.")
	assert.Contains(t, text, firstID)
	assert.Contains(t, text, "New conversation started.")
	assert.Contains(t, text, "unknown command /bogus")
	assert.NotEqual(t, firstID, app.Session.ConversationID())
	assert.Equal(t, []string{"never sent"}, reader.lines)
}

func TestRunChat_EOFExits(t *testing.T) {
	captureOutput(t)
	app := newTestApp(t, sseServer(t, answerStream).URL)
	assert.NoError(t, runChat(context.Background(), app, &scriptedReader{}, true, false))
}

// =============================================================================
// VERSION
// =============================================================================

func TestHandleVersion_JSON(t *testing.T) {
	out, _ := captureOutput(t)
	require.NoError(t, HandleVersion(Args{JSON: true}))

	var resp struct {
		Data VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, Version, resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
}
