package models

import (
	"time"

	"github.com/syncmind/syncmind-api/internal/badge"
)

// Badge is one achievement record held by a student under a single teacher.
type Badge struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_badges_pair" json:"user_id"`
	TeacherID uint       `gorm:"not null;index:idx_badges_pair" json:"teacher_id"`
	Tier      badge.Tier `gorm:"size:16;not null" json:"tier"`
	CreatedAt time.Time  `json:"created_at"`
}
