// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates one question-and-answer turn at a time.
//
// A Session wires the upstream client, the SSE decoder, the event classifier,
// the text revealer and the conversation store together. Its lifecycle is a
// small state machine:
//
//	idle --send--> streaming --stream_ended--> revealing --revealed--> idle
//
// Send is only permitted from idle, so a question asked while a turn is in
// flight is refused with ErrBusy instead of being queued. NewChat resets the
// machine from any state, cancels the in-flight request and clears the store.
//
// # Usage
//
//	s := session.New(upstream.NewClient(endpoint), session.DefaultConfig())
//	defer s.Close()
//
//	turn, err := s.Send(ctx, "What is Go?")
//	if err != nil {
//	    return err
//	}
//	<-turn.Done()
//	answer, _ := s.Store().Get(turn.AssistantID)
package session
