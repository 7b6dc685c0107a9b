// Package ingest parses uploaded files into text chunks ready for the vector
// store. Dispatch is by file extension; each chunk gets a fresh random id and
// is tagged with the originating filename.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/model"
)

var (
	// ErrUnsupportedFormat is returned for extensions outside .txt/.csv/.md/.docx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyDocument is returned when a parse yields no chunks.
	ErrEmptyDocument = errors.New("document has no content")
)

type parser func(path string) ([]string, error)

var parsers = map[string]parser{
	".txt":  parseText,
	".csv":  parseCSV,
	".md":   parseMarkdown,
	".docx": parseDocx,
}

// Load parses the file at path into documents. Chunk ids are random UUIDs;
// collision probability is treated as zero.
func Load(path string) ([]model.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parse, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	chunks, err := parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s failed: %w", filepath.Base(path), err)
	}

	source := filepath.Base(path)
	now := time.Now()
	docs := make([]model.Document, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		docs = append(docs, model.Document{
			ID:        uuid.NewString(),
			Content:   chunk,
			Source:    source,
			CreatedAt: now,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}
	return docs, nil
}
