// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/model"

	_ "modernc.org/sqlite"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ErrOpenMessage is returned when an unfinished assistant message is saved.
var ErrOpenMessage = errors.New("assistant message is still loading")

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// History persists closed turns in a SQLite database.
type History struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*History, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &History{db: db, path: path}, nil
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.path
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// SaveTurn appends a closed question/answer pair to the conversation,
// creating the conversation on its first turn.
func (h *History) SaveTurn(ctx context.Context, conversationID string, question, answer model.Message) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id is empty")
	}
	if answer.IsOpen() {
		return ErrOpenMessage
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	title := question.Preview(50)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conversationID, title, now, now); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = ?`,
		conversationID).Scan(&seq); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	for i, m := range []model.Message{question, answer} {
		sources, err := json.Marshal(nonNil(m.Sources))
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO messages (id, conversation_id, seq, role, text, plan, sources, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, conversationID, seq+i, m.Role.String(), m.Text, m.Plan, string(sources), m.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logging.L.Debug("turn saved", "conversation", conversationID, "seq", seq)
	return nil
}

// List returns conversation metadata, most recently updated first.
// A limit of zero or less returns every conversation.
func (h *History) List(ctx context.Context, limit int) ([]model.ConversationMeta, error) {
	query := `
		SELECT c.id, c.title, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       COALESCE((SELECT m.text FROM messages m
		                 WHERE m.conversation_id = c.id AND m.role = 'user'
		                 ORDER BY m.seq DESC LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	metas := make([]model.ConversationMeta, 0)
	for rows.Next() {
		var (
			meta             model.ConversationMeta
			created, updated int64
			last             string
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &created, &updated, &meta.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		meta.CreatedAt = time.Unix(0, created)
		meta.UpdatedAt = time.Unix(0, updated)
		meta.Preview = (&model.Message{Text: last}).Preview(100)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Load returns a conversation with all of its messages in order.
func (h *History) Load(ctx context.Context, id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}
	var created, updated int64
	err := h.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, role, text, plan, sources, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	conv.Messages = make([]model.Message, 0)
	for rows.Next() {
		var (
			m       model.Message
			role    string
			sources string
			at      int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Text, &m.Plan, &sources, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.CreatedAt = time.Unix(0, at)
		if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
			return nil, fmt.Errorf("decode sources for %s: %w", m.ID, err)
		}
		conv.Messages = append(conv.Messages, m)
	}
	return conv, rows.Err()
}

// Resolve expands a unique id prefix, with or without "conv_", to a full
// conversation id.
func (h *History) Resolve(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrConversationNotFound
	}
	if !strings.HasPrefix(prefix, "conv_") {
		prefix = "conv_" + prefix
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id FROM conversations WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(prefix)+"%")
	if err != nil {
		return "", fmt.Errorf("resolve conversation: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrConversationNotFound
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("conversation id %q is ambiguous", prefix)
	}
}

// Delete removes a conversation and its messages.
func (h *History) Delete(ctx context.Context, id string) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func nonNil(s []model.Source) []model.Source {
	if s == nil {
		return []model.Source{}
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
