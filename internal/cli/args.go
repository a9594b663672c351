// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser parses subcommand arguments.
//
// Supported flag formats:
//
//	--flag value     only for flags named in valued
//	--flag=value
//	--flag           boolean
//
// Everything else is positional; the first positional is the subcommand.
type ArgParser struct {
	subcommand string
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw. Flags listed in valued consume the following
// argument as their value.
//
//	args := NewArgParser([]string{"list", "--limit", "5", "--json"}, "limit")
//	args.Subcommand()            // "list"
//	args.FlagIntOrDefault("limit", 20) // 5
//	args.BoolFlag("json")        // true
func NewArgParser(raw []string, valued ...string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}
	takesValue := make(map[string]bool, len(valued))
	for _, v := range valued {
		takesValue[v] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if v == "true" || v == "false" {
				p.boolFlags[k] = v == "true"
			} else {
				p.flags[k] = v
			}
			continue
		}

		if takesValue[name] && i+1 < len(raw) {
			i++
			p.flags[name] = raw[i]
			continue
		}
		p.boolFlags[name] = true
	}

	if len(p.positional) > 0 {
		p.subcommand = strings.ToLower(p.positional[0])
	}
	return p
}

// Subcommand returns the first positional argument, lowercased.
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag value or a default if not found.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return defaultValue
}

// FlagInt returns the flag value as an integer.
func (p *ArgParser) FlagInt(name string) (int, error) {
	val := p.Flag(name)
	if val == "" {
		return 0, fmt.Errorf("flag %s not found", name)
	}
	return strconv.Atoi(val)
}

// FlagIntOrDefault returns the flag value as an integer or a default.
func (p *ArgParser) FlagIntOrDefault(name string, defaultValue int) int {
	val, err := p.FlagInt(name)
	if err != nil {
		return defaultValue
	}
	return val
}

// BoolFlag reports whether a boolean flag was set.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index, or "". Index 0 is
// the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom joins the positional arguments from index onwards.
func (p *ArgParser) PositionalFrom(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return strings.Join(p.positional[index:], " ")
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}
