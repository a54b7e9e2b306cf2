package domain

import (
	"testing"
	"time"
)

func TestNewPresenceEntryDefaults(t *testing.T) {
	e := NewPresenceEntry(0)
	if e.DurationSeconds != DefaultPomodoroSeconds {
		t.Fatalf("duration=%d want %d", e.DurationSeconds, DefaultPomodoroSeconds)
	}
	if e.RemainingSeconds != DefaultPomodoroSeconds {
		t.Fatalf("remaining=%d want %d", e.RemainingSeconds, DefaultPomodoroSeconds)
	}
	if e.Status != StatusNotStudying || e.IsRunning {
		t.Fatalf("unexpected fresh entry: %+v", e)
	}
}

func TestStartUsesCachedRemainingWhenNonzero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.RemainingSeconds = 90
	e.Start(now)

	if !e.IsRunning || e.Status != StatusActive {
		t.Fatalf("expected running active entry, got %+v", e)
	}
	if e.EndsAt == nil || !e.EndsAt.Equal(now.Add(90*time.Second)) {
		t.Fatalf("ends_at=%v want %v", e.EndsAt, now.Add(90*time.Second))
	}
}

func TestStartResetsToFullDurationWhenExhausted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.RemainingSeconds = 0
	e.Start(now)

	if e.RemainingSeconds != 1500 {
		t.Fatalf("remaining=%d want full duration", e.RemainingSeconds)
	}
	if e.EndsAt == nil || !e.EndsAt.Equal(now.Add(1500*time.Second)) {
		t.Fatalf("ends_at=%v want %v", e.EndsAt, now.Add(1500*time.Second))
	}
}

func TestPausePreservesStatusAndCachesRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)
	e.Pause(now.Add(100 * time.Second))

	if e.IsRunning || e.EndsAt != nil {
		t.Fatalf("expected paused entry, got %+v", e)
	}
	if e.RemainingSeconds != 1400 {
		t.Fatalf("remaining=%d want 1400", e.RemainingSeconds)
	}
	if e.Status != StatusActive {
		t.Fatalf("pause must preserve status, got %s", e.Status)
	}
}

func TestRemainingAtClampedToRange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)

	cases := map[string]struct {
		at   time.Time
		want int
	}{
		"one second left": {at: e.EndsAt.Add(-time.Second), want: 1},
		"exactly due":     {at: *e.EndsAt, want: 0},
		"long past due":   {at: e.EndsAt.Add(time.Hour), want: 0},
		"clock skew back": {at: now.Add(-time.Hour), want: 1500},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := e.RemainingAt(tc.at); got != tc.want {
				t.Fatalf("RemainingAt=%d want %d", got, tc.want)
			}
		})
	}
}

func TestResolveBeforeDeadlineIsNoop(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)

	if e.Resolve(e.EndsAt.Add(-time.Second)) {
		t.Fatal("resolve before the deadline must not fire")
	}
	if !e.IsRunning {
		t.Fatal("entry must still be running")
	}
	if got := e.RemainingAt(e.EndsAt.Add(-time.Second)); got != 1 {
		t.Fatalf("remaining=%d want 1", got)
	}
}

func TestResolveAtDeadlineCompletesSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)

	if !e.Resolve(*e.EndsAt) {
		t.Fatal("resolve at the deadline must fire")
	}
	if e.IsRunning || e.RemainingSeconds != 0 || e.Status != StatusBreak || e.EndsAt != nil {
		t.Fatalf("unexpected resolved entry: %+v", e)
	}
	if !e.Completed() {
		t.Fatal("resolved entry must count as completed")
	}
}

func TestResetRestoresFullSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)
	e.Reset(now.Add(time.Minute))

	if e.IsRunning || e.EndsAt != nil || e.RemainingSeconds != 1500 {
		t.Fatalf("unexpected reset entry: %+v", e)
	}
}

func TestSetStatusDoesNotTouchTimer(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)
	e.SetStatus(StatusNotStudying, now.Add(time.Second))

	if !e.IsRunning || e.EndsAt == nil {
		t.Fatal("set-status must leave the running countdown alone")
	}
	if e.Status != StatusNotStudying {
		t.Fatalf("status=%s want not_studying", e.Status)
	}
}

func TestNormalizeRepairsCorruptEntry(t *testing.T) {
	e := PresenceEntry{
		Status:           "sleeping",
		IsRunning:        true,
		RemainingSeconds: -10,
		DurationSeconds:  0,
	}
	e.Normalize()

	if e.Status != StatusNotStudying {
		t.Fatalf("status=%s want not_studying", e.Status)
	}
	if e.DurationSeconds != DefaultPomodoroSeconds {
		t.Fatalf("duration=%d want default", e.DurationSeconds)
	}
	if e.RemainingSeconds != 0 {
		t.Fatalf("remaining=%d want 0", e.RemainingSeconds)
	}
	if e.IsRunning {
		t.Fatal("running without ends_at must normalize to paused")
	}
}

func TestViewRecomputesDisplayedRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewPresenceEntry(1500)
	e.Start(now)

	v := e.View(now.Add(500 * time.Second))
	if v.RemainingSeconds != 1000 {
		t.Fatalf("view remaining=%d want 1000", v.RemainingSeconds)
	}
	if e.RemainingSeconds != 1500 {
		t.Fatal("view must not mutate the stored snapshot")
	}
}
