package domain

import "time"

// Note is one Mefil chat message on the shared board.
type Note struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Author    Role      `gorm:"size:16;index;not null" json:"author"`
	Text      string    `gorm:"size:2000;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
