package model

import (
	"time"

	"gorm.io/gorm"
)

// ChatSession is soft-deleted only; rows are never removed. gorm.DeletedAt
// excludes deleted sessions from all default queries.
type ChatSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ChatSession) TableName() string { return "chat_sessions" }
