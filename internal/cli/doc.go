// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the askr command line: argument parsing, the
// one-shot ask command, the line-based chat REPL, history and config
// management, and the TUI launcher.
//
// Command handlers return errors; Run displays them and maps them to exit
// codes.
package cli
