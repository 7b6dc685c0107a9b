package model

import "time"

// AuditRecord captures one completed turn: the question, the full response, the
// serialized retrieval context, and wall-clock latency. Records are append-only
// and outlive their session (ChatID is nullable, never cascaded).
type AuditRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ChatID        *uint     `gorm:"index" json:"chat_id"`
	Question      string    `gorm:"type:text" json:"question"`
	Response      string    `gorm:"type:text" json:"response"`
	RetrievedDocs string    `gorm:"type:text" json:"retrieved_docs"`
	LatencyMS     int64     `gorm:"column:latency_ms" json:"latency_ms"`
	Timestamp     time.Time `json:"timestamp"`
	Feedback      *string   `gorm:"type:text" json:"feedback,omitempty"`
}

func (AuditRecord) TableName() string { return "chat_audit" }
