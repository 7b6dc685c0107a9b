package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit record. It also satisfies the engine's audit sink
// when no message broker is configured.
func (r *AuditRepository) Append(ctx context.Context, record *model.AuditRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append audit record failed: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByChatID(ctx context.Context, chatID uint) ([]model.AuditRecord, error) {
	var records []model.AuditRecord
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list audit records for chat %d failed: %w", chatID, err)
	}
	return records, nil
}

// UpdateFeedback attaches reviewer feedback to an existing record.
func (r *AuditRepository) UpdateFeedback(ctx context.Context, recordID uint, feedback string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AuditRecord{}).
		Where("id = ?", recordID).
		Update("feedback", feedback)
	if result.Error != nil {
		return fmt.Errorf("update feedback for audit %d failed: %w", recordID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
