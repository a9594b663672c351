// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a persisted record of closed turns.
//
// The live, mutable list lives in the conversation store; this type is the
// value handed to history storage and export.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []Message `json:"messages"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0),
	}
}

// Add appends copies of the given messages and updates the title.
func (c *Conversation) Add(msgs ...Message) {
	for _, m := range msgs {
		c.Messages = append(c.Messages, m.Clone())
	}
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// IsEmpty returns true if the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for i := range c.Messages {
		if c.Messages[i].Role == RoleUser {
			c.Title = c.Messages[i].Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// Preview returns a short preview of the last question asked.
func (c *Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return "Empty conversation"
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i].Preview(100)
		}
	}
	return c.Messages[0].Preview(100)
}

// GetMeta returns metadata about the conversation.
func (c *Conversation) GetMeta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.GetTitle(),
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Preview:      c.Preview(),
	}
}

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	for i := range c.Messages {
		clone.Messages[i] = c.Messages[i].Clone()
	}
	return &clone
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	return "conv_" + uuid.NewString()
}
