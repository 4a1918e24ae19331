package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/agentpilot/internal/clock"
)

func TestNew_Defaults(t *testing.T) {
	snap := New().Snapshot()

	assert.False(t, snap.IsRunning)
	assert.Equal(t, uint64(0), snap.SessionID)
	assert.Equal(t, ModeNone, snap.Mode)
	assert.Empty(t, snap.TabNames)
	assert.NotNil(t, snap.TabNames)
	assert.Empty(t, snap.CompletionStatus)
}

func TestBegin_IncrementsAndSupersedes(t *testing.T) {
	s := New()

	first := s.Begin(context.Background(), ModeSimple)
	assert.Equal(t, uint64(1), first.ID())
	assert.True(t, first.Valid())

	second := s.Begin(context.Background(), ModeBackground)
	assert.Equal(t, uint64(2), second.ID())
	assert.True(t, second.Valid())
	assert.False(t, first.Valid())
	assert.ErrorIs(t, first.Context().Err(), context.Canceled)

	snap := s.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, ModeBackground, snap.Mode)
	assert.Equal(t, uint64(2), snap.SessionID)
}

func TestHalt_KeepsSessionID(t *testing.T) {
	s := New()
	lease := s.Begin(context.Background(), ModeBackground)
	require.True(t, lease.SetTabs([]string{"a", "b"}, "a"))

	s.Halt()

	assert.False(t, lease.Valid())
	snap := s.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, uint64(1), snap.SessionID)
	assert.Equal(t, []string{"a", "b"}, snap.TabNames)

	next := s.Begin(context.Background(), ModeSimple)
	assert.Equal(t, uint64(2), next.ID())
}

func TestReset_FullReset(t *testing.T) {
	s := New()
	lease := s.Begin(context.Background(), ModeBackground)
	lease.SetTabs([]string{"chat"}, "chat")
	lease.MarkComplete("chat")

	s.Reset()

	snap := s.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, uint64(0), snap.SessionID)
	assert.Equal(t, ModeNone, snap.Mode)
	assert.Empty(t, snap.TabNames)
	assert.Empty(t, snap.ActiveTab)
	assert.Empty(t, snap.CompletionStatus)
	assert.False(t, lease.Valid())
}

func TestReset_StaleLeaseNotRevivedByReusedID(t *testing.T) {
	s := New()
	old := s.Begin(context.Background(), ModeSimple)
	s.Reset()

	fresh := s.Begin(context.Background(), ModeSimple)
	require.Equal(t, old.ID(), fresh.ID())

	assert.True(t, fresh.Valid())
	assert.False(t, old.Valid())
	assert.False(t, old.SetTabs([]string{"x"}, ""))
	assert.False(t, old.MarkComplete("x"))
}

func TestLease_WritesIgnoredWhenStale(t *testing.T) {
	s := New()
	old := s.Begin(context.Background(), ModeBackground)
	cur := s.Begin(context.Background(), ModeBackground)

	assert.False(t, old.SetTabs([]string{"stale"}, ""))
	assert.True(t, cur.SetTabs([]string{"live"}, "live"))
	assert.True(t, cur.MarkComplete("live"))

	snap := s.Snapshot()
	assert.Equal(t, []string{"live"}, snap.TabNames)
	assert.Equal(t, "live", snap.ActiveTab)
	assert.Equal(t, map[string]bool{"live": true}, snap.CompletionStatus)
}

func TestLease_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lease := New().Begin(ctx, ModeSimple)

	cancel()
	assert.False(t, lease.Valid())
}

func TestLease_Pause(t *testing.T) {
	s := New()
	fake := clock.NewFake(time.Unix(0, 0))
	lease := s.Begin(context.Background(), ModeSimple)

	result := make(chan bool, 1)
	go func() { result <- lease.Pause(fake, time.Second) }()
	require.True(t, fake.BlockUntil(1, time.Second))
	fake.Advance(time.Second)
	assert.True(t, <-result)

	go func() { result <- lease.Pause(fake, time.Hour) }()
	require.True(t, fake.BlockUntil(1, time.Second))
	s.Reset()
	assert.False(t, <-result)
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New()
	lease := s.Begin(context.Background(), ModeBackground)
	lease.SetTabs([]string{"one"}, "")
	lease.MarkComplete("one")

	snap := s.Snapshot()
	snap.TabNames[0] = "mutated"
	snap.CompletionStatus["other"] = true

	again := s.Snapshot()
	assert.Equal(t, []string{"one"}, again.TabNames)
	assert.Len(t, again.CompletionStatus, 1)
}

func TestOnChange_LastObserverWins(t *testing.T) {
	s := New()
	var first, second []Snapshot
	s.OnChange(func(snap Snapshot) { first = append(first, snap) })
	s.OnChange(func(snap Snapshot) { second = append(second, snap) })

	s.Begin(context.Background(), ModeSimple)
	s.Reset()

	assert.Empty(t, first)
	require.Len(t, second, 2)
	assert.True(t, second[0].IsRunning)
	assert.False(t, second[1].IsRunning)
}

func TestLease_HaltOnlyOwnSession(t *testing.T) {
	s := New()
	old := s.Begin(context.Background(), ModeSimple)
	cur := s.Begin(context.Background(), ModeBackground)

	assert.False(t, old.Halt())
	assert.True(t, s.Snapshot().IsRunning)

	require.True(t, cur.SetTabs([]string{"a"}, "a"))
	assert.True(t, cur.Halt())

	snap := s.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, uint64(2), snap.SessionID)
	assert.Equal(t, ModeBackground, snap.Mode)
	assert.Equal(t, []string{"a"}, snap.TabNames)
	assert.False(t, cur.Valid())
	assert.False(t, cur.Halt())
}

func TestLease_HaltAfterResetWithReusedID(t *testing.T) {
	s := New()
	old := s.Begin(context.Background(), ModeSimple)
	s.Reset()
	fresh := s.Begin(context.Background(), ModeSimple)
	require.Equal(t, old.ID(), fresh.ID())

	assert.False(t, old.Halt())
	assert.True(t, fresh.Valid())
}
