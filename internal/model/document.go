package model

import "time"

// Document is one retrievable chunk in the vector store. The ID is assigned at
// ingestion time and stays immutable; updates replace the content (and its
// embedding) under the same ID.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentMeta is what listing endpoints return: everything but the content.
type DocumentMeta struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

func (d Document) Meta() DocumentMeta {
	return DocumentMeta{ID: d.ID, Source: d.Source, CreatedAt: d.CreatedAt}
}
