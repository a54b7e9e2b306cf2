package domain

import (
	"fmt"
	"time"
)

// PresenceStatus is the self-reported study state of one role.
type PresenceStatus string

const (
	StatusActive      PresenceStatus = "active"
	StatusBreak       PresenceStatus = "break"
	StatusNotStudying PresenceStatus = "not_studying"
)

// DefaultPomodoroSeconds is one full focus session.
const DefaultPomodoroSeconds = 25 * 60

func ParsePresenceStatus(raw string) (PresenceStatus, error) {
	switch PresenceStatus(raw) {
	case StatusActive, StatusBreak, StatusNotStudying:
		return PresenceStatus(raw), nil
	default:
		return "", fmt.Errorf("unknown presence status %q", raw)
	}
}

// PresenceEntry is one role's Pomodoro snapshot. RemainingSeconds is only
// authoritative while the timer is not running; while running, the truth is
// EndsAt minus now, clamped to [0, DurationSeconds].
type PresenceEntry struct {
	Status           PresenceStatus `json:"status"`
	IsRunning        bool           `json:"is_running"`
	RemainingSeconds int            `json:"remaining_seconds"`
	DurationSeconds  int            `json:"duration_seconds"`
	EndsAt           *time.Time     `json:"ends_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

func NewPresenceEntry(durationSeconds int) PresenceEntry {
	if durationSeconds <= 0 {
		durationSeconds = DefaultPomodoroSeconds
	}
	return PresenceEntry{
		Status:           StatusNotStudying,
		IsRunning:        false,
		RemainingSeconds: durationSeconds,
		DurationSeconds:  durationSeconds,
	}
}

// Normalize repairs an entry read from storage: clamps the cached remaining
// time, defaults the duration, and drops an ends-at that cannot be valid.
func (e *PresenceEntry) Normalize() {
	if e.DurationSeconds <= 0 {
		e.DurationSeconds = DefaultPomodoroSeconds
	}
	if e.RemainingSeconds < 0 {
		e.RemainingSeconds = 0
	}
	if e.RemainingSeconds > e.DurationSeconds {
		e.RemainingSeconds = e.DurationSeconds
	}
	switch e.Status {
	case StatusActive, StatusBreak, StatusNotStudying:
	default:
		e.Status = StatusNotStudying
	}
	if !e.IsRunning {
		e.EndsAt = nil
	}
	if e.IsRunning && e.EndsAt == nil {
		// Running without a deadline is unrepresentable; treat as paused.
		e.IsRunning = false
	}
}

// RemainingAt is the pure read projection: the displayed remaining time at
// now, never mutating the entry.
func (e PresenceEntry) RemainingAt(now time.Time) int {
	if !e.IsRunning || e.EndsAt == nil {
		return e.RemainingSeconds
	}
	remaining := int(e.EndsAt.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	if remaining > e.DurationSeconds {
		return e.DurationSeconds
	}
	return remaining
}

// Resolve applies the lazy expiry transition: a running timer whose deadline
// has passed becomes a completed, non-running break. Returns true when the
// entry changed and needs to be persisted.
func (e *PresenceEntry) Resolve(now time.Time) bool {
	if !e.IsRunning || e.EndsAt == nil {
		return false
	}
	if e.EndsAt.After(now) {
		return false
	}
	e.IsRunning = false
	e.RemainingSeconds = 0
	e.Status = StatusBreak
	e.EndsAt = nil
	e.touch(now)
	return true
}

// Start arms the countdown from the cached remaining time, or from a full
// session when none is left.
func (e *PresenceEntry) Start(now time.Time) {
	remaining := e.RemainingSeconds
	if remaining <= 0 {
		remaining = e.DurationSeconds
		e.RemainingSeconds = remaining
	}
	endsAt := now.Add(time.Duration(remaining) * time.Second)
	e.EndsAt = &endsAt
	e.IsRunning = true
	e.Status = StatusActive
	e.touch(now)
}

// Pause freezes the countdown, caching the clamped remaining time.
func (e *PresenceEntry) Pause(now time.Time) {
	if e.IsRunning {
		e.RemainingSeconds = e.RemainingAt(now)
	}
	e.IsRunning = false
	e.EndsAt = nil
	e.touch(now)
}

// Reset restores a full, non-running session without touching the status.
func (e *PresenceEntry) Reset(now time.Time) {
	e.RemainingSeconds = e.DurationSeconds
	e.IsRunning = false
	e.EndsAt = nil
	e.touch(now)
}

// SetStatus overwrites the self-reported status; the countdown is untouched.
func (e *PresenceEntry) SetStatus(status PresenceStatus, now time.Time) {
	e.Status = status
	e.touch(now)
}

// ConsumeCompleted turns a finished session into a fresh non-running break
// entry. Callers must have verified the session is complete.
func (e *PresenceEntry) ConsumeCompleted(now time.Time) {
	e.RemainingSeconds = e.DurationSeconds
	e.IsRunning = false
	e.EndsAt = nil
	e.Status = StatusBreak
	e.touch(now)
}

// Completed reports whether a full session has legitimately elapsed.
func (e PresenceEntry) Completed() bool {
	return !e.IsRunning && e.RemainingSeconds == 0
}

func (e *PresenceEntry) touch(now time.Time) {
	t := now
	e.UpdatedAt = &t
}

// PresenceView is the serialized projection of an entry with the displayed
// remaining time recomputed against the clock, never trusting the snapshot.
type PresenceView struct {
	Status           PresenceStatus `json:"status"`
	IsRunning        bool           `json:"is_running"`
	RemainingSeconds int            `json:"remaining_seconds"`
	DurationSeconds  int            `json:"duration_seconds"`
	EndsAt           *time.Time     `json:"ends_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

func (e PresenceEntry) View(now time.Time) PresenceView {
	return PresenceView{
		Status:           e.Status,
		IsRunning:        e.IsRunning,
		RemainingSeconds: e.RemainingAt(now),
		DurationSeconds:  e.DurationSeconds,
		EndsAt:           e.EndsAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
