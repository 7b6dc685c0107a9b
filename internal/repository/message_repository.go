package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(ctx context.Context, sessionID uint, text, sender string) (*model.ChatMessage, error) {
	message := &model.ChatMessage{
		SessionID: sessionID,
		Message:   text,
		Sender:    sender,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("append message to session %d failed: %w", sessionID, err)
	}
	return message, nil
}

// ListBySessionID returns the transcript oldest first. Messages of a
// soft-deleted session are excluded; an empty transcript is a valid result,
// not an error.
func (r *MessageRepository) ListBySessionID(ctx context.Context, sessionID uint) ([]model.ChatMessage, error) {
	messages := []model.ChatMessage{}
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_sessions ON chat_sessions.id = chat_messages.session_id").
		Where("chat_messages.session_id = ? AND chat_sessions.deleted_at IS NULL", sessionID).
		Order("chat_messages.created_at ASC, chat_messages.id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for session %d failed: %w", sessionID, err)
	}
	return messages, nil
}
