// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/storage"
)

const historyUsage = `askr history [list [--limit N] | show ID | export ID FILE | delete ID]`

// HandleHistory handles "askr history".
func HandleHistory(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, args.Quiet || args.JSON); err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return &ConfigError{Err: fmt.Errorf("history is disabled (set history.enabled = true)")}
	}

	h, err := storage.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer h.Close()

	return runHistory(context.Background(), h, args)
}

func runHistory(ctx context.Context, h *storage.History, args Args) error {
	p := NewArgParser(args.Raw, "limit", "n")
	switch p.Subcommand() {
	case "", "list", "ls":
		limit := p.FlagIntOrDefault("limit", p.FlagIntOrDefault("n", 20))
		return historyList(ctx, h, limit, args.JSON)
	case "show", "view":
		return historyShow(ctx, h, p.Positional(1), args.JSON)
	case "export":
		return historyExport(ctx, h, p.Positional(1), p.Positional(2), args.JSON)
	case "delete", "rm":
		return historyDelete(ctx, h, p.Positional(1), args.JSON)
	default:
		return ErrUnknownSubcommand("history", p.Subcommand(), historyUsage)
	}
}

func historyList(ctx context.Context, h *storage.History, limit int, jsonMode bool) error {
	metas, err := h.List(ctx, limit)
	if err != nil {
		return err
	}
	if jsonMode {
		if metas == nil {
			metas = []model.ConversationMeta{}
		}
		return NewJSONResponse("history list", metas).Print()
	}
	fmt.Fprint(stdout, storage.FormatList(metas))
	if len(metas) == 0 {
		fmt.Fprintln(stdout)
	}
	return nil
}

func historyShow(ctx context.Context, h *storage.History, prefix string, jsonMode bool) error {
	conv, err := loadByPrefix(ctx, h, prefix, "askr history show ID")
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("history show", conv).Print()
	}
	md := storage.ExportMarkdown(conv)
	if IsStdoutTTY() {
		md = renderMarkdown(md, GetTerminalWidth())
	}
	fmt.Fprintln(stdout, md)
	return nil
}

func historyExport(ctx context.Context, h *storage.History, prefix, path string, jsonMode bool) error {
	if path == "" {
		return ErrMissingArgument("file", "askr history export ID answers.md")
	}
	id, err := resolveID(ctx, h, prefix, "askr history export ID FILE")
	if err != nil {
		return err
	}
	if err := h.Export(ctx, id, path); err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("history export", map[string]string{"id": id, "path": path}).Print()
	}
	fmt.Fprintf(stdout, "%s exported %s to %s\n", SuccessStyle.Render("[OK]"), id, path)
	return nil
}

func historyDelete(ctx context.Context, h *storage.History, prefix string, jsonMode bool) error {
	id, err := resolveID(ctx, h, prefix, "askr history delete ID")
	if err != nil {
		return err
	}
	if err := h.Delete(ctx, id); err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("history delete", map[string]string{"id": id}).Print()
	}
	fmt.Fprintf(stdout, "%s deleted %s\n", SuccessStyle.Render("[OK]"), id)
	return nil
}

func resolveID(ctx context.Context, h *storage.History, prefix, usage string) (string, error) {
	if prefix == "" {
		return "", ErrMissingArgument("id", usage)
	}
	return h.Resolve(ctx, prefix)
}

func loadByPrefix(ctx context.Context, h *storage.History, prefix, usage string) (*model.Conversation, error) {
	id, err := resolveID(ctx, h, prefix, usage)
	if err != nil {
		return nil, err
	}
	return h.Load(ctx, id)
}
