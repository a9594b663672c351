// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Answer"
	default:
		return string(r)
	}
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is one cited reference.
type Source struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// NewSource builds a Source using the display-name fallback chain
// name, title, url. It returns false when url is empty.
func NewSource(name, title, url, snippet string) (Source, bool) {
	if url == "" {
		return Source{}, false
	}
	label := name
	if label == "" {
		label = title
	}
	if label == "" {
		label = url
	}
	return Source{Name: label, URL: url, Snippet: snippet}, true
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
//
// Text, Plan and Sources only change while an assistant message is loading.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content
	Text string `json:"text"`

	// Streaming state
	Loading bool `json:"loading,omitempty"`

	// Answer metadata (assistant only)
	Plan    string   `json:"plan,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

// NewUserMessage creates a closed user message.
func NewUserMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates an open assistant message with empty content.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Loading:   true,
		Sources:   []Source{},
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsOpen reports whether the message still accepts patches.
func (m *Message) IsOpen() bool {
	return m.Role == RoleAssistant && m.Loading
}

// Apply applies a patch to an open assistant message.
// It returns false and leaves the message untouched otherwise.
func (m *Message) Apply(p Patch) bool {
	if !m.IsOpen() {
		return false
	}

	switch p.Kind {
	case PatchSetPlan:
		if p.Text == "" {
			return false
		}
		m.Plan = p.Text
	case PatchAppendSources:
		if len(p.Sources) == 0 {
			return false
		}
		m.Sources = append(m.Sources, p.Sources...)
	case PatchAppendText:
		if p.Text == "" {
			return false
		}
		m.Text += p.Text
	default:
		return false
	}
	return true
}

// Close finalizes the message. Closing twice is a no-op.
func (m *Message) Close() bool {
	if !m.IsOpen() {
		return false
	}
	m.Loading = false
	return true
}

// Clone returns a deep copy so readers never share slices with the writer.
func (m *Message) Clone() Message {
	c := *m
	if m.Sources != nil {
		c.Sources = make([]Source, len(m.Sources))
		copy(c.Sources, m.Sources)
	}
	return c
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
