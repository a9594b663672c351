// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/session"
	"github.com/jeranaias/askr/internal/storage"
	"github.com/jeranaias/askr/internal/upstream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	ExitInterrupted   = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents bad command-line input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a failure to load or save configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownSubcommand creates an error for an unrecognised subcommand.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &ValidationError{Field: command + " subcommand", Value: sub, Reason: "unknown subcommand", Example: usage}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to stderr, or as JSON to stdout in JSON mode.
func DisplayError(err error, jsonMode bool) {
	var reported reportedError
	if err == nil || errors.As(err, &reported) {
		return
	}
	if isInterrupt(err) {
		fmt.Fprintln(stderr, DimStyle.Render("interrupted"))
		return
	}
	if jsonMode {
		DisplayErrorJSON(err)
		return
	}
	fmt.Fprintf(stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// DisplayErrorJSON writes a structured error to stdout.
func DisplayErrorJSON(err error) {
	output := map[string]interface{}{
		"error":      err.Error(),
		"success":    false,
		"error_type": errorType(err),
		"exit_code":  GetExitCode(err),
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		output["status"] = statusErr.Status
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		output["field"] = validationErr.Field
		if validationErr.Example != "" {
			output["example"] = validationErr.Example
		}
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "validation_error"
	case ExitConfigError:
		return "config_error"
	case ExitNetworkError:
		return "network_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitTimeoutError:
		return "timeout_error"
	default:
		return "generic_error"
	}
}

// GetExitCode maps an error onto a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if isInterrupt(err) {
		return ExitInterrupted
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) || errors.Is(err, session.ErrEmptyQuestion) {
		return ExitUsageError
	}

	var configErr *ConfigError
	var validateErrs config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &validateErrs) {
		return ExitConfigError
	}

	if errors.Is(err, storage.ErrConversationNotFound) {
		return ExitNotFoundError
	}

	if errors.Is(err, upstream.ErrIdleTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}

	var statusErr *upstream.StatusError
	var netErr net.Error
	if errors.As(err, &statusErr) || errors.As(err, &netErr) || errors.Is(err, upstream.ErrNotConfigured) {
		return ExitNetworkError
	}

	return ExitGeneralError
}
