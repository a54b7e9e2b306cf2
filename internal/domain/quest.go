package domain

import "time"

// QuestStatus is the battle state. Both terminal states freeze attack and
// distraction transitions until an explicit reset.
type QuestStatus string

const (
	QuestActive QuestStatus = "active"
	QuestWon    QuestStatus = "won"
	QuestLost   QuestStatus = "lost"
)

// ActionType tags the last quest mutation for attribution.
type ActionType string

const (
	ActionAttack     ActionType = "attack"
	ActionDistracted ActionType = "distracted"
)

const (
	DefaultBossName       = "The DBMS Final"
	DefaultBossMaxHP      = 500
	DefaultTeamMaxHP      = 100
	DefaultAttackDamage   = 25
	DefaultDistractDamage = 20
)

// QuestState is the single shared boss-battle record.
type QuestState struct {
	BossName       string      `json:"boss_name"`
	BossHP         int         `json:"boss_hp"`
	BossMaxHP      int         `json:"boss_max_hp"`
	TeamHP         int         `json:"team_hp"`
	TeamMaxHP      int         `json:"team_max_hp"`
	Status         QuestStatus `json:"status"`
	LastActionType *ActionType `json:"last_action_type,omitempty"`
	LastActor      *Role       `json:"last_actor,omitempty"`
	LastDamage     *int        `json:"last_damage,omitempty"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
}

func NewQuestState(bossName string, bossMaxHP, teamMaxHP int) QuestState {
	if bossName == "" {
		bossName = DefaultBossName
	}
	if bossMaxHP <= 0 {
		bossMaxHP = DefaultBossMaxHP
	}
	if teamMaxHP <= 0 {
		teamMaxHP = DefaultTeamMaxHP
	}
	return QuestState{
		BossName:  bossName,
		BossHP:    bossMaxHP,
		BossMaxHP: bossMaxHP,
		TeamHP:    teamMaxHP,
		TeamMaxHP: teamMaxHP,
		Status:    QuestActive,
	}
}

// Normalize clamps HP into range and recomputes the status invariant:
// won iff the boss is down, lost iff the team is down while the boss stands.
func (q *QuestState) Normalize() {
	if q.BossName == "" {
		q.BossName = DefaultBossName
	}
	if q.BossMaxHP <= 0 {
		q.BossMaxHP = DefaultBossMaxHP
	}
	if q.TeamMaxHP <= 0 {
		q.TeamMaxHP = DefaultTeamMaxHP
	}
	q.BossHP = clamp(q.BossHP, 0, q.BossMaxHP)
	q.TeamHP = clamp(q.TeamHP, 0, q.TeamMaxHP)
	q.Status = q.deriveStatus()
	if q.LastActor != nil && !q.LastActor.Valid() {
		q.LastActor = nil
	}
	if q.LastActionType != nil && *q.LastActionType != ActionAttack && *q.LastActionType != ActionDistracted {
		q.LastActionType = nil
	}
}

func (q QuestState) deriveStatus() QuestStatus {
	switch {
	case q.BossHP <= 0:
		return QuestWon
	case q.TeamHP <= 0:
		return QuestLost
	default:
		return QuestActive
	}
}

// ApplyAttack reduces boss HP by damage, floored at zero, and records the
// actor. Returns false without mutating when the quest is not active.
func (q *QuestState) ApplyAttack(actor Role, damage int, now time.Time) bool {
	if q.Status != QuestActive {
		return false
	}
	q.BossHP = clamp(q.BossHP-damage, 0, q.BossMaxHP)
	q.record(ActionAttack, actor, damage, now)
	return true
}

// ApplyDistraction reduces team HP by damage, floored at zero.
func (q *QuestState) ApplyDistraction(actor Role, damage int, now time.Time) bool {
	if q.Status != QuestActive {
		return false
	}
	q.TeamHP = clamp(q.TeamHP-damage, 0, q.TeamMaxHP)
	q.record(ActionDistracted, actor, damage, now)
	return true
}

func (q *QuestState) record(action ActionType, actor Role, damage int, now time.Time) {
	q.Status = q.deriveStatus()
	q.LastActionType = &action
	q.LastActor = &actor
	q.LastDamage = &damage
	t := now
	q.UpdatedAt = &t
}

// Reset restores full HP on both sides and clears the last-action fields.
// Callable at any time, including mid-battle, and idempotent.
func (q *QuestState) Reset(now time.Time) {
	q.BossHP = q.BossMaxHP
	q.TeamHP = q.TeamMaxHP
	q.Status = QuestActive
	q.LastActionType = nil
	q.LastActor = nil
	q.LastDamage = nil
	t := now
	q.UpdatedAt = &t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
