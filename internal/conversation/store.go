// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"sync"

	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/model"
)

// ErrAssistantOpen is returned when an assistant message is already loading.
var ErrAssistantOpen = errors.New("an assistant message is already open")

// Options configures a Store.
type Options struct {
	// DedupeSources drops sources whose URL is already attached to the message.
	DedupeSources bool
}

// Store is the conversation read model and its only writer.
type Store struct {
	opts Options

	ops     chan func(*state)
	updates chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	hookMu  sync.Mutex
	onClear []func()
}

// state is touched only by the actor goroutine.
type state struct {
	messages []*model.Message
	index    map[string]*model.Message
	openID   string
	version  uint64
}

// New creates a Store and starts its actor goroutine.
func New(opts Options) *Store {
	s := &Store{
		opts:    opts,
		ops:     make(chan func(*state)),
		updates: make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	defer close(s.done)
	st := &state{index: make(map[string]*model.Message)}
	for {
		select {
		case op := <-s.ops:
			op(st)
		case <-s.quit:
			return
		}
	}
}

// do runs op on the actor goroutine and waits for it. It reports false when
// the store has been stopped.
func (s *Store) do(op func(*state)) bool {
	finished := make(chan struct{})
	select {
	case s.ops <- func(st *state) {
		op(st)
		close(finished)
	}:
	case <-s.done:
		return false
	}
	<-finished
	return true
}

// notify performs a non-blocking send so bursts coalesce into one wake-up.
func (s *Store) notify(st *state) {
	st.version++
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddUser appends a closed user message and returns a copy of it.
func (s *Store) AddUser(text string) model.Message {
	var out model.Message
	s.do(func(st *state) {
		m := model.NewUserMessage(text)
		st.append(m)
		out = m.Clone()
		s.notify(st)
	})
	return out
}

// OpenAssistant appends an open assistant message. Only one may be open.
func (s *Store) OpenAssistant() (model.Message, error) {
	var (
		out model.Message
		err error
	)
	s.do(func(st *state) {
		if st.openID != "" {
			err = ErrAssistantOpen
			return
		}
		m := model.NewAssistantMessage()
		st.append(m)
		st.openID = m.ID
		out = m.Clone()
		s.notify(st)
	})
	return out, err
}

// Apply applies p to the message with the given id. It reports whether the
// message changed.
func (s *Store) Apply(id string, p model.Patch) bool {
	changed := false
	s.do(func(st *state) {
		m, ok := st.index[id]
		if !ok {
			logging.L.Debug("patch for unknown message ignored", "message_id", id, "patch", p.Kind.String())
			return
		}
		if p.Kind == model.PatchAppendSources && s.opts.DedupeSources {
			p.Sources = dedupe(m, p.Sources)
		}
		if changed = m.Apply(p); changed {
			s.notify(st)
		}
	})
	return changed
}

// Close finalizes the assistant message. Closing an unknown or already
// closed message is a no-op.
func (s *Store) Close(id string) bool {
	closed := false
	s.do(func(st *state) {
		m, ok := st.index[id]
		if !ok {
			return
		}
		if closed = m.Close(); closed {
			if st.openID == id {
				st.openID = ""
			}
			s.notify(st)
		}
	})
	return closed
}

// OnClear registers fn to run at the start of every Clear.
func (s *Store) OnClear(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Clear runs the clear hooks, then empties the list.
func (s *Store) Clear() {
	s.hookMu.Lock()
	hooks := append([]func(){}, s.onClear...)
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	s.do(func(st *state) {
		st.messages = nil
		st.index = make(map[string]*model.Message)
		st.openID = ""
		s.notify(st)
	})
}

// =============================================================================
// READS
// =============================================================================

// Messages returns a deep copy of the list in order.
func (s *Store) Messages() []model.Message {
	var out []model.Message
	s.do(func(st *state) {
		out = make([]model.Message, len(st.messages))
		for i, m := range st.messages {
			out[i] = m.Clone()
		}
	})
	return out
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (model.Message, bool) {
	var (
		out model.Message
		ok  bool
	)
	s.do(func(st *state) {
		var m *model.Message
		if m, ok = st.index[id]; ok {
			out = m.Clone()
		}
	})
	return out, ok
}

// OpenID returns the id of the loading assistant message, or "".
func (s *Store) OpenID() string {
	var id string
	s.do(func(st *state) { id = st.openID })
	return id
}

// Version increases on every change.
func (s *Store) Version() uint64 {
	var v uint64
	s.do(func(st *state) { v = st.version })
	return v
}

// Updates delivers a value after one or more changes.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

// Stop terminates the actor goroutine. Later calls are no-ops.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

// =============================================================================
// HELPERS
// =============================================================================

func (st *state) append(m *model.Message) {
	st.messages = append(st.messages, m)
	st.index[m.ID] = m
}

// dedupe keeps the first occurrence of each URL, counting sources already on m.
func dedupe(m *model.Message, in []model.Source) []model.Source {
	seen := make(map[string]bool, len(m.Sources)+len(in))
	for _, src := range m.Sources {
		seen[src.URL] = true
	}
	out := make([]model.Source, 0, len(in))
	for _, src := range in {
		if seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		out = append(out, src)
	}
	return out
}
