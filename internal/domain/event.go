package domain

import "time"

// BattleEvent is one appended quest action, kept so the partner notification
// fan-out and history views have a durable record.
type BattleEvent struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Type      ActionType `gorm:"size:16;index;not null" json:"type"`
	Actor     Role       `gorm:"size:16;index;not null" json:"actor"`
	Damage    int        `gorm:"not null" json:"damage"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
