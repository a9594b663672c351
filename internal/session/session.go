// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/askr/internal/conversation"
	"github.com/jeranaias/askr/internal/event"
	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/reveal"
	"github.com/jeranaias/askr/internal/sse"
	"github.com/jeranaias/askr/internal/upstream"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrBusy is returned when a turn is already in flight.
	ErrBusy = errors.New("an answer is still streaming")
)

// errorPrefix marks an inline failure in the answer text.
const errorPrefix = "\n[Error] "

// =============================================================================
// LIFECYCLE
// =============================================================================

// State is a lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateRevealing State = "revealing"
)

// Trigger moves the lifecycle between states.
type Trigger string

const (
	TriggerSend        Trigger = "send"
	TriggerStreamEnded Trigger = "stream_ended"
	TriggerRevealed    Trigger = "revealed"
	TriggerReset       Trigger = "reset"
)

func newLifecycle() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerSend, StateStreaming).
		Ignore(TriggerReset)

	fsm.Configure(StateStreaming).
		Permit(TriggerStreamEnded, StateRevealing).
		Permit(TriggerReset, StateIdle)

	fsm.Configure(StateRevealing).
		Permit(TriggerRevealed, StateIdle).
		Permit(TriggerReset, StateIdle)

	fsm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		logging.L.Debug("session state changed",
			"from", t.Source, "to", t.Destination, "trigger", t.Trigger)
	})
	return fsm
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Asker is the upstream dependency of a Session.
type Asker interface {
	Ask(ctx context.Context, question string) (*upstream.Response, error)
}

// HistorySink persists closed turns.
type HistorySink interface {
	SaveTurn(ctx context.Context, conversationID string, question, answer model.Message) error
}

// Config holds configuration for a Session.
type Config struct {
	// RevealInterval is the delay between revealed runs. Zero disables pacing.
	RevealInterval time.Duration

	// DedupeSources drops repeated source URLs within one answer.
	DedupeSources bool

	// History receives every closed turn when non-nil.
	History HistorySink
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		RevealInterval: reveal.DefaultInterval,
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session runs turns against one conversation.
type Session struct {
	client   Asker
	store    *conversation.Store
	revealer *reveal.Revealer
	history  HistorySink

	mu             sync.Mutex
	fsm            *stateless.StateMachine
	generation     uint64
	cancelTurn     context.CancelFunc
	conversationID string
}

// Turn is a handle on one in-flight question.
type Turn struct {
	UserID      string
	AssistantID string

	generation uint64
	done       chan struct{}
	err        error
}

// Done is closed once the assistant message is closed.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Err returns the failure that was written into the answer, if any.
// It is only meaningful after Done is closed.
func (t *Turn) Err() error {
	return t.err
}

// New creates a Session using client.
func New(client Asker, cfg Config) *Session {
	store := conversation.New(conversation.Options{DedupeSources: cfg.DedupeSources})
	revealer := reveal.New(func(id, run string) {
		store.Apply(id, model.AppendText(run))
	}, cfg.RevealInterval)
	store.OnClear(revealer.CancelAll)

	return &Session{
		client:         client,
		store:          store,
		revealer:       revealer,
		history:        cfg.History,
		fsm:            newLifecycle(),
		conversationID: model.NewConversation().ID,
	}
}

// Store returns the conversation read model.
func (s *Session) Store() *conversation.Store {
	return s.store
}

// Revealer returns the text revealer.
func (s *Session) Revealer() *reveal.Revealer {
	return s.revealer
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fsm.MustState().(State)
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	return s.State() != StateIdle
}

// ConversationID returns the history id that the next closed turn is saved under.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Send starts a turn for question and returns without waiting for the
// answer. ctx bounds the whole turn; cancelling it aborts the request.
func (s *Session) Send(ctx context.Context, question string) (*Turn, error) {
	display := norm.NFC.String(strings.TrimSpace(question))
	if display == "" {
		return nil, ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fsm.Fire(TriggerSend); err != nil {
		return nil, ErrBusy
	}

	user := s.store.AddUser(display)
	assistant, err := s.store.OpenAssistant()
	if err != nil {
		s.fsm.Fire(TriggerReset)
		return nil, fmt.Errorf("open answer: %w", err)
	}

	s.generation++
	turnCtx, cancel := context.WithCancel(ctx)
	turn := &Turn{
		UserID:      user.ID,
		AssistantID: assistant.ID,
		generation:  s.generation,
		done:        make(chan struct{}),
	}
	s.cancelTurn = cancel

	logging.L.Info("question sent", "message_id", assistant.ID, "chars", len(display))
	go s.run(turnCtx, cancel, turn, question)
	return turn, nil
}

// Ask sends question and waits until its answer is closed.
func (s *Session) Ask(ctx context.Context, question string) (model.Message, error) {
	turn, err := s.Send(ctx, question)
	if err != nil {
		return model.Message{}, err
	}
	select {
	case <-turn.Done():
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
	answer, _ := s.store.Get(turn.AssistantID)
	return answer, nil
}

// NewChat aborts any in-flight turn and clears the conversation. The next
// closed turn starts a new history conversation. A Send that races NewChat
// lands either before the clear or after it, never inside it.
func (s *Session) NewChat() {
	s.mu.Lock()
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.generation++
	if err := s.fsm.Fire(TriggerReset); err != nil {
		logging.L.Warn("session reset failed", "error", err)
	}
	s.conversationID = model.NewConversation().ID
	s.store.Clear()
	s.mu.Unlock()

	logging.L.Info("new chat started")
}

// Close aborts any in-flight turn and stops the store.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancelTurn != nil {
		s.cancelTurn()
	}
	s.mu.Unlock()
	s.revealer.CancelAll()
	s.store.Stop()
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, turn *Turn, question string) {
	defer close(turn.done)
	defer cancel()

	id := turn.AssistantID
	s.stream(ctx, turn, question)

	s.advance(turn, TriggerStreamEnded)

	if err := s.revealer.Wait(ctx, id); err != nil {
		logging.L.Debug("reveal wait aborted", "message_id", id, "error", err)
	}
	s.store.Close(id)
	if convID, current := s.advance(turn, TriggerRevealed); current {
		s.persist(convID, turn)
	}
}

// stream performs the request and feeds every patch to the store or revealer.
func (s *Session) stream(ctx context.Context, turn *Turn, question string) {
	id := turn.AssistantID
	resp, err := s.client.Ask(ctx, question)
	if err != nil {
		s.fail(ctx, turn, err)
		return
	}
	defer resp.Body.Close()

	if !resp.Streaming {
		body, err := upstream.ReadBlob(resp.Body)
		if body != "" {
			s.revealer.Enqueue(id, "\n"+body)
		}
		if err != nil {
			s.fail(ctx, turn, err)
		}
		return
	}

	err = sse.Read(ctx, resp.Body, func(p sse.Payload) error {
		for _, patch := range event.Classify(p) {
			s.apply(id, patch)
		}
		return nil
	})
	if err != nil {
		s.fail(ctx, turn, err)
	}
}

// apply routes answer text through the revealer and everything else straight
// to the store.
func (s *Session) apply(id string, p model.Patch) {
	if p.Kind == model.PatchAppendText {
		s.revealer.Enqueue(id, p.Text)
		return
	}
	if !s.store.Apply(id, p) {
		logging.L.Debug("patch ignored", "message_id", id, "patch", p.Kind.String())
	}
}

// fail surfaces err inline unless the turn was cancelled on purpose.
func (s *Session) fail(ctx context.Context, turn *Turn, err error) {
	id := turn.AssistantID
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logging.L.Debug("turn cancelled", "message_id", id)
		return
	}
	logging.L.Warn("answer failed", "message_id", id, "error", err)
	turn.err = err
	s.revealer.Enqueue(id, errorPrefix+err.Error())
}

// advance fires t only if turn is still the current one. It returns the
// history conversation id and whether the turn was current.
func (s *Session) advance(turn *Turn, t Trigger) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.generation != s.generation {
		return "", false
	}
	if err := s.fsm.Fire(t); err != nil {
		logging.L.Warn("session transition rejected", "trigger", t, "error", err)
	}
	if t == TriggerRevealed {
		s.cancelTurn = nil
	}
	return s.conversationID, true
}

// persist saves a closed turn to history.
func (s *Session) persist(convID string, turn *Turn) {
	if s.history == nil {
		return
	}

	question, ok := s.store.Get(turn.UserID)
	if !ok {
		return
	}
	answer, ok := s.store.Get(turn.AssistantID)
	if !ok || answer.Loading {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.SaveTurn(ctx, convID, question, answer); err != nil {
		logging.L.Warn("failed to save turn", "message_id", answer.ID, "error", err)
	}
}
