// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askr/internal/model"
)

func newStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s := New(opts)
	t.Cleanup(s.Stop)
	return s
}

func TestStore_TurnLifecycle(t *testing.T) {
	s := newStore(t, Options{})

	user := s.AddUser("What is Go?")
	assert.Equal(t, model.RoleUser, user.Role)

	a, err := s.OpenAssistant()
	require.NoError(t, err)
	assert.True(t, a.Loading)
	assert.Equal(t, a.ID, s.OpenID())

	assert.True(t, s.Apply(a.ID, model.SetPlan("Searching")))
	assert.True(t, s.Apply(a.ID, model.AppendSources([]model.Source{{Name: "Go", URL: "https://go.dev"}})))
	assert.True(t, s.Apply(a.ID, model.AppendText(" Go is")))
	assert.True(t, s.Apply(a.ID, model.AppendText(" a language")))

	assert.True(t, s.Close(a.ID))
	assert.Empty(t, s.OpenID())

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "What is Go?", msgs[0].Text)
	assert.Equal(t, " Go is a language", msgs[1].Text)
	assert.Equal(t, "Searching", msgs[1].Plan)
	assert.Len(t, msgs[1].Sources, 1)
	assert.False(t, msgs[1].Loading)
}

func TestStore_OnlyOneOpenAssistant(t *testing.T) {
	s := newStore(t, Options{})

	a, err := s.OpenAssistant()
	require.NoError(t, err)

	_, err = s.OpenAssistant()
	assert.ErrorIs(t, err, ErrAssistantOpen)

	s.Close(a.ID)
	_, err = s.OpenAssistant()
	assert.NoError(t, err)
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	s := newStore(t, Options{})
	a, _ := s.OpenAssistant()
	s.Apply(a.ID, model.AppendText("final"))

	assert.True(t, s.Close(a.ID))
	assert.False(t, s.Close(a.ID))

	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "final", got.Text)
	assert.False(t, got.Loading)
}

func TestStore_NoOpTargets(t *testing.T) {
	s := newStore(t, Options{})
	user := s.AddUser("q")
	a, _ := s.OpenAssistant()
	s.Close(a.ID)

	tests := []struct {
		name string
		id   string
	}{
		{"unknown id", "msg_missing"},
		{"user message", user.ID},
		{"closed assistant", a.ID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := s.Messages()
			assert.False(t, s.Apply(tc.id, model.AppendText("x")))
			assert.False(t, s.Apply(tc.id, model.SetPlan("x")))
			assert.False(t, s.Close(tc.id))
			assert.Equal(t, before, s.Messages())
		})
	}
}

func TestStore_Clear(t *testing.T) {
	s := newStore(t, Options{})

	hookRan := false
	s.OnClear(func() { hookRan = true })

	s.AddUser("q")
	a, _ := s.OpenAssistant()
	s.Clear()

	assert.True(t, hookRan)
	assert.Empty(t, s.Messages())
	assert.Empty(t, s.OpenID())
	assert.False(t, s.Apply(a.ID, model.AppendText("late")), "patch after clear is a no-op")
	assert.False(t, s.Close(a.ID))
}

func TestStore_DedupeSources(t *testing.T) {
	batch1 := []model.Source{{Name: "A", URL: "https://a"}, {Name: "A again", URL: "https://a"}}
	batch2 := []model.Source{{Name: "B", URL: "https://b"}, {Name: "A3", URL: "https://a"}}

	tests := []struct {
		name  string
		opts  Options
		names []string
	}{
		{"duplicates kept by default", Options{}, []string{"A", "A again", "B", "A3"}},
		{"dedupe keeps first", Options{DedupeSources: true}, []string{"A", "B"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t, tc.opts)
			a, _ := s.OpenAssistant()
			s.Apply(a.ID, model.AppendSources(batch1))
			s.Apply(a.ID, model.AppendSources(batch2))

			got, _ := s.Get(a.ID)
			var names []string
			for _, src := range got.Sources {
				names = append(names, src.Name)
			}
			assert.Equal(t, tc.names, names)
		})
	}
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := newStore(t, Options{})
	a, _ := s.OpenAssistant()
	s.Apply(a.ID, model.AppendSources([]model.Source{{Name: "A", URL: "https://a"}}))

	msgs := s.Messages()
	msgs[0].Sources[0].Name = "mutated"
	msgs[0].Text = "mutated"

	got, _ := s.Get(a.ID)
	assert.Equal(t, "A", got.Sources[0].Name)
	assert.Empty(t, got.Text)
}

func TestStore_UpdatesCoalesce(t *testing.T) {
	s := newStore(t, Options{})
	a, _ := s.OpenAssistant()

	// Drain the open notification.
	<-s.Updates()

	v := s.Version()
	for i := 0; i < 10; i++ {
		s.Apply(a.ID, model.AppendText("x"))
	}
	assert.Equal(t, v+10, s.Version())

	select {
	case <-s.Updates():
	case <-time.After(time.Second):
		t.Fatal("expected an update notification")
	}
	select {
	case <-s.Updates():
		t.Fatal("notifications should coalesce")
	default:
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := newStore(t, Options{})
	a, _ := s.OpenAssistant()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Apply(a.ID, model.AppendText("x"))
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(a.ID)
	assert.Len(t, got.Text, 1000)
}

func TestStore_StopIsSafe(t *testing.T) {
	s := New(Options{})
	s.Stop()
	s.Stop()

	assert.False(t, s.Apply("x", model.AppendText("y")))
	assert.Empty(t, s.Messages())
}
