// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output streams. Tests replace them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdHistory:
		return "history"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	// Endpoint overrides upstream.endpoint for this run.
	Endpoint string

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `askr - conversational search in the terminal

Usage:
  askr [--q QUESTION]          Start the TUI, optionally asking QUESTION
  askr ask QUESTION [--json]   Stream one answer to stdout
  askr chat                    Line-based chat (/new, /quit, /help)
  askr history [list]          List saved conversations
  askr history show ID         Print a saved conversation
  askr history export ID FILE  Write a conversation as JSON or Markdown (.md)
  askr history delete ID       Delete a saved conversation
  askr config [show]           Show configuration
  askr config path             Print the config file path
  askr config get KEY          Print one setting (e.g. reveal.delay_ms)
  askr config set KEY VALUE    Change one setting and save
  askr version                 Show version
  askr help                    Show this help

Global flags:
  --endpoint URL   Answering service for this run
  --json           Machine-readable output (ask, history, config, version)
  -q, --quiet      Only print the answer
  -v, --verbose    Debug logging to stderr (or log.file)

Environment:
  ASKR_CONFIG_DIR, ASKR_ENDPOINT, ASKR_IDLE_TIMEOUT, ASKR_REVEAL_DELAY_MS,
  ASKR_LOG_LEVEL, ASKR_HISTORY_PATH, NO_COLOR

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Fprintf(stdout, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Fprintf(stdout, "askr version %s\n", Version)
	fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(stdout, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]
	parsed.Raw = rest

	switch cmd {
	case "tui":
		parseTUIArgs(&parsed, rest)
		return CmdTUI, parsed
	case "ask", "a":
		parsed.Query = strings.Join(rest, " ")
		return CmdAsk, parsed
	case "chat", "c":
		return CmdChat, parsed
	case "history", "hist":
		parseSubcommandArgs(&parsed, rest)
		return CmdHistory, parsed
	case "config":
		parseSubcommandArgs(&parsed, rest)
		return CmdConfig, parsed
	case "version", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		// An unknown first word starts the TUI with the whole line as a question
		parsed.Query = strings.Join(remaining, " ")
		parsed.Raw = remaining
		return CmdTUI, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--endpoint":
			if i+1 < len(argv) {
				i++
				parsed.Endpoint = argv[i]
			}
		case "--q", "--question":
			if i+1 < len(argv) {
				i++
				parsed.Query = argv[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--endpoint="):
				parsed.Endpoint = strings.TrimPrefix(arg, "--endpoint=")
			case strings.HasPrefix(arg, "--q="):
				parsed.Query = strings.TrimPrefix(arg, "--q=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}
	return remaining, parsed
}

func parseTUIArgs(args *Args, rest []string) {
	if args.Query == "" && len(rest) > 0 {
		args.Query = strings.Join(rest, " ")
	}
}

// parseSubcommandArgs fills Subcommand, ConfigKey and ConfigVal positionally.
func parseSubcommandArgs(args *Args, rest []string) {
	if len(rest) > 0 {
		args.Subcommand = strings.ToLower(rest[0])
	}
	if len(rest) > 1 {
		args.ConfigKey = rest[1]
	}
	if len(rest) > 2 {
		args.ConfigVal = strings.Join(rest[2:], " ")
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// Run executes cmd and returns the process exit code.
func Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdTUI:
		err = HandleTUI(args)
	case CmdAsk:
		err = HandleAsk(args)
	case CmdChat:
		err = HandleChat(args)
	case CmdHistory:
		err = HandleHistory(args)
	case CmdConfig:
		err = HandleConfig(args)
	case CmdVersion:
		err = HandleVersion(args)
	case CmdHelp:
		PrintUsage()
	}
	if err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print()
	}
	PrintVersion()
	return nil
}
