// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
//
// This package defines the domain types shared by the stream assembler,
// the conversation store and the presentation layer.
//
// # Key Types
//
//   - Message: One conversational turn (user question or assistant answer)
//   - Source: A cited web reference attached to an assistant answer
//   - Patch: A single field-level change to an open assistant message
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Build an assistant answer from patches:
//
//	msg := model.NewAssistantMessage()
//	msg.Apply(model.SetPlan("Searching the web"))
//	msg.Apply(model.AppendText(" Here are the results"))
//	msg.Close()
package model
