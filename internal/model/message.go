package model

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is append-only and belongs to exactly one session. Messages of a
// soft-deleted session stay in storage but are excluded from listing.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Sender    string    `gorm:"size:16;not null" json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
