package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context) (*model.ChatSession, error) {
	session := &model.ChatSession{}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}
	return session, nil
}

// ListActive returns non-deleted sessions ordered by creation time ascending.
func (r *SessionRepository) ListActive(ctx context.Context) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// GetActive returns the session if it exists and is not soft-deleted, nil
// otherwise.
func (r *SessionRepository) GetActive(ctx context.Context, sessionID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session %d failed: %w", sessionID, err)
	}
	return &session, nil
}

// SoftDelete marks the session deleted; the row is retained.
func (r *SessionRepository) SoftDelete(ctx context.Context, sessionID uint) error {
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&model.ChatSession{}).Error; err != nil {
		return fmt.Errorf("delete session %d failed: %w", sessionID, err)
	}
	return nil
}
