// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/util"
)

// =============================================================================
// EXPORT
// =============================================================================

// Export writes a conversation to path. Files ending in .md or .markdown get
// Markdown; anything else gets indented JSON.
func (h *History) Export(ctx context.Context, id, path string) error {
	conv, err := h.Load(ctx, id)
	if err != nil {
		return err
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data = []byte(ExportMarkdown(conv))
	default:
		data, err = ExportJSON(conv)
		if err != nil {
			return fmt.Errorf("encode conversation: %w", err)
		}
	}
	return util.AtomicWriteFile(path, data, 0600)
}

// ExportMarkdown renders a conversation as Markdown.
func ExportMarkdown(c *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + c.GetTitle() + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.CreatedAt.Format("15:04") + "):\n\n")
		if msg.Plan != "" {
			sb.WriteString("> " + strings.ReplaceAll(msg.Plan, "\n", "\n> ") + "\n\n")
		}
		sb.WriteString(strings.TrimSpace(msg.Text))
		sb.WriteString("\n\n")
		for i, src := range msg.Sources {
			sb.WriteString(strconv.Itoa(i+1) + ". [" + src.Name + "](" + src.URL + ")\n")
		}
		if len(msg.Sources) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}

	return sb.String()
}

// ExportJSON renders a conversation as indented JSON.
func ExportJSON(c *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats conversation metadata as a table.
func FormatList(metas []model.ConversationMeta) string {
	if len(metas) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 14) + " " + util.PadRight("Updated", 17) + " " + util.PadRight("Msgs", 5) + " Preview\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for _, m := range metas {
		id := strings.TrimPrefix(m.ID, "conv_")
		if len(id) > 13 {
			id = id[:13]
		}
		sb.WriteString(util.PadRight(id, 14) + " " +
			util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(strconv.Itoa(m.MessageCount), 5) + " " +
			util.TruncateWidth(util.SingleLine(m.Preview), 34) + "\n")
	}
	return sb.String()
}
