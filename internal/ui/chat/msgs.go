// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/session"
)

// StoreUpdatedMsg signals that the conversation changed.
type StoreUpdatedMsg struct{}

// TurnDoneMsg signals that an answer was closed.
type TurnDoneMsg struct {
	AssistantID string
}

// ConfigChangedMsg carries a reloaded configuration.
type ConfigChangedMsg struct {
	Config *config.Config
}

// SubmitMsg asks a question as if it had been typed.
type SubmitMsg struct {
	Question string
}

func waitForStore(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StoreUpdatedMsg{}
	}
}

func waitForTurn(turn *session.Turn) tea.Cmd {
	return func() tea.Msg {
		<-turn.Done()
		return TurnDoneMsg{AssistantID: turn.AssistantID}
	}
}

func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return ConfigChangedMsg{Config: cfg}
	}
}
