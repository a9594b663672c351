// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/ui/components"
)

// JSONResponse is the envelope for every --json output.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response. data may still carry a
// partial result.
func NewJSONErrorResponse(command string, data interface{}, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      data,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response to stdout as indented JSON, highlighted when
// stdout is a colour terminal.
func (r *JSONResponse) Print() error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s response: %w", r.Command, err)
	}
	_, err = fmt.Fprintln(stdout, colorize(string(data), "json"))
	return err
}

// colorize highlights text only for an interactive colour terminal.
func colorize(text, language string) string {
	if !ColorsEnabled() || !IsStdoutTTY() {
		return text
	}
	return components.Highlight(text, language)
}

// =============================================================================
// COMMAND PAYLOADS
// =============================================================================

// VersionData is the --json payload of "version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// AskData is the --json payload of "ask".
type AskData struct {
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	Plan           string         `json:"plan,omitempty"`
	Sources        []model.Source `json:"sources"`
	ConversationID string         `json:"conversation_id"`
	DurationMs     int64          `json:"duration_ms"`
}

// ConfigPathData is the --json payload of "config path".
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// ConfigValueData is the --json payload of "config get" and "config set".
type ConfigValueData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}
