package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/notify"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/repository"
)

var (
	ErrTimerNotComplete = errors.New("pomodoro session is not complete")
	ErrQuestNotActive   = errors.New("quest is not active")
	ErrRoleMismatch     = errors.New("role does not match the session")
)

// saveAttempts bounds the optimistic-save retry loop on mutating paths.
const saveAttempts = 3

// SessionView is the full state both clients poll every second.
type SessionView struct {
	Quest    domain.QuestState                   `json:"quest"`
	Presence map[domain.Role]domain.PresenceView `json:"presence"`
	Version  int64                               `json:"version"`
}

type MefilService struct {
	docs     repository.DocumentRepository
	events   repository.EventRepository
	notifier notify.Notifier
	logger   *slog.Logger

	attackDamage   int
	distractDamage int
	now            func() time.Time
}

func NewMefilService(
	docs repository.DocumentRepository,
	events repository.EventRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
	attackDamage, distractDamage int,
) *MefilService {
	if attackDamage <= 0 {
		attackDamage = domain.DefaultAttackDamage
	}
	if distractDamage <= 0 {
		distractDamage = domain.DefaultDistractDamage
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &MefilService{
		docs:           docs,
		events:         events,
		notifier:       notifier,
		logger:         logger,
		attackDamage:   attackDamage,
		distractDamage: distractDamage,
		now:            time.Now,
	}
}

// State loads the shared document and projects it for serving. When a running
// timer has expired, the resolved entry is persisted with a single optimistic
// attempt; a conflict means another request already resolved it, which is
// fine, the projection is served either way.
func (s *MefilService) State(ctx context.Context) (*SessionView, error) {
	doc, err := s.docs.LoadOrCreate(ctx, domain.GlobalScope)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if doc.ResolveAll(now) {
		if err := s.docs.Save(ctx, doc); err != nil && !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
	}
	return s.view(doc, now), nil
}

// SetStatus overwrites the caller's self-reported presence status without
// touching the countdown.
func (s *MefilService) SetStatus(ctx context.Context, role domain.Role, status domain.PresenceStatus) (*SessionView, error) {
	return s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		entry := doc.Entry(role)
		entry.SetStatus(status, now)
		doc.SetEntry(role, entry)
		observability.RecordPresenceTransition(ctx, role.String(), "status:"+string(status))
		return nil
	})
}

// StartTimer arms the caller's countdown from the cached remaining time, or
// from a full session when none is left.
func (s *MefilService) StartTimer(ctx context.Context, role domain.Role) (*SessionView, error) {
	return s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		entry := doc.Entry(role)
		entry.Start(now)
		doc.SetEntry(role, entry)
		observability.RecordPresenceTransition(ctx, role.String(), "start")
		return nil
	})
}

// PauseTimer freezes the caller's countdown, preserving the status.
func (s *MefilService) PauseTimer(ctx context.Context, role domain.Role) (*SessionView, error) {
	return s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		entry := doc.Entry(role)
		entry.Pause(now)
		doc.SetEntry(role, entry)
		observability.RecordPresenceTransition(ctx, role.String(), "pause")
		return nil
	})
}

// ResetTimer restores the caller's full non-running session.
func (s *MefilService) ResetTimer(ctx context.Context, role domain.Role) (*SessionView, error) {
	return s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		entry := doc.Entry(role)
		entry.Reset(now)
		doc.SetEntry(role, entry)
		observability.RecordPresenceTransition(ctx, role.String(), "reset")
		return nil
	})
}

// CompleteAttack lands the caller's earned hit: the resolved timer must show
// a finished session and the quest must be active. On success the caller's
// presence becomes a fresh break entry and the partner is notified.
func (s *MefilService) CompleteAttack(ctx context.Context, role domain.Role) (*SessionView, error) {
	view, err := s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		entry := doc.Entry(role)
		if !entry.Completed() {
			observability.RecordQuestAction(ctx, "attack", role.String(), "timer_incomplete")
			return ErrTimerNotComplete
		}
		if !doc.Quest.ApplyAttack(role, s.attackDamage, now) {
			observability.RecordQuestAction(ctx, "attack", role.String(), "quest_inactive")
			return ErrQuestNotActive
		}
		entry.ConsumeCompleted(now)
		doc.SetEntry(role, entry)
		observability.RecordQuestAction(ctx, "attack", role.String(), "success")
		return nil
	})
	if err != nil {
		return view, err
	}
	s.recordAction(ctx, domain.ActionAttack, role, s.attackDamage, view)
	return view, nil
}

// ManualAttack lands a hit without the Pomodoro precondition.
func (s *MefilService) ManualAttack(ctx context.Context, role domain.Role) (*SessionView, error) {
	view, err := s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		if !doc.Quest.ApplyAttack(role, s.attackDamage, now) {
			observability.RecordQuestAction(ctx, "manual_attack", role.String(), "quest_inactive")
			return ErrQuestNotActive
		}
		observability.RecordQuestAction(ctx, "manual_attack", role.String(), "success")
		return nil
	})
	if err != nil {
		return view, err
	}
	s.recordAction(ctx, domain.ActionAttack, role, s.attackDamage, view)
	return view, nil
}

// Distract reports the caller lost focus: team HP drops and the caller's
// status flips to not_studying while the cached countdown survives.
func (s *MefilService) Distract(ctx context.Context, role domain.Role) (*SessionView, error) {
	view, err := s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		if !doc.Quest.ApplyDistraction(role, s.distractDamage, now) {
			observability.RecordQuestAction(ctx, "distracted", role.String(), "quest_inactive")
			return ErrQuestNotActive
		}
		entry := doc.Entry(role)
		entry.Pause(now)
		entry.SetStatus(domain.StatusNotStudying, now)
		doc.SetEntry(role, entry)
		observability.RecordQuestAction(ctx, "distracted", role.String(), "success")
		return nil
	})
	if err != nil {
		return view, err
	}
	s.recordAction(ctx, domain.ActionDistracted, role, s.distractDamage, view)
	return view, nil
}

// ResetQuest restores full HP on both sides and clears the battle log.
func (s *MefilService) ResetQuest(ctx context.Context, role domain.Role) (*SessionView, error) {
	view, err := s.mutate(ctx, func(doc *domain.SharedDocument, now time.Time) error {
		doc.Quest.Reset(now)
		observability.RecordQuestAction(ctx, "reset", role.String(), "success")
		return nil
	})
	if err != nil {
		return view, err
	}
	if s.events != nil {
		if _, err := s.events.DeleteAll(ctx); err != nil {
			s.logger.Warn("clear battle events", "error", err)
		}
	}
	return view, nil
}

// RecentEvents lists the newest battle events.
func (s *MefilService) RecentEvents(ctx context.Context, limit int) ([]domain.BattleEvent, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.ListRecent(ctx, limit)
}

// mutate is the optimistic write loop: load, resolve expired timers, apply,
// save, and retry on a version conflict with a freshly loaded document.
func (s *MefilService) mutate(ctx context.Context, apply func(doc *domain.SharedDocument, now time.Time) error) (*SessionView, error) {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		doc, err := s.docs.LoadOrCreate(ctx, domain.GlobalScope)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		doc.ResolveAll(now)
		if err := apply(doc, now); err != nil {
			// Typed rejections still carry the current state so the
			// handler can show it.
			return s.view(doc, now), err
		}
		if err := s.docs.Save(ctx, doc); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return s.view(doc, now), nil
	}
	return nil, lastErr
}

func (s *MefilService) view(doc *domain.SharedDocument, now time.Time) *SessionView {
	return &SessionView{
		Quest:    doc.Quest,
		Presence: doc.PresenceViews(now),
		Version:  doc.Version,
	}
}

func (s *MefilService) recordAction(ctx context.Context, action domain.ActionType, actor domain.Role, damage int, view *SessionView) {
	now := s.now().UTC()
	if s.events != nil {
		event := &domain.BattleEvent{Type: action, Actor: actor, Damage: damage, CreatedAt: now}
		if err := s.events.Append(ctx, event); err != nil {
			s.logger.Warn("append battle event", "action", action, "actor", actor, "error", err)
		}
	}
	payload := notify.AttackEvent{
		Type:      action,
		Actor:     actor,
		Damage:    damage,
		CreatedAt: now,
	}
	if view != nil {
		payload.BossHP = view.Quest.BossHP
		payload.TeamHP = view.Quest.TeamHP
	}
	s.notifier.NotifyQuestAction(ctx, actor.Partner(), payload)
}
