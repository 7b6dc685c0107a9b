package ingest

import (
	"archive/zip"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseText loads the whole file as a single chunk.
func parseText(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []string{string(raw)}, nil
}

// parseCSV yields one chunk per data row, rendered as "header: value" lines.
func parseCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	chunks := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		var sb strings.Builder
		for i, field := range row {
			name := fmt.Sprintf("column%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(field)
		}
		chunks = append(chunks, sb.String())
	}
	return chunks, nil
}

// parseMarkdown strips formatting by walking the goldmark AST and collecting
// text content, one chunk per top-level block.
func parseMarkdown(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	root := goldmark.DefaultParser().Parse(text.NewReader(raw))
	var chunks []string
	for block := root.FirstChild(); block != nil; block = block.NextSibling() {
		var sb strings.Builder
		collectText(block, raw, &sb)
		if s := strings.TrimSpace(sb.String()); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks, nil
}

func collectText(n ast.Node, source []byte, sb *strings.Builder) {
	if t, ok := n.(*ast.Text); ok {
		sb.Write(t.Segment.Value(source))
		if t.SoftLineBreak() || t.HardLineBreak() {
			sb.WriteByte('\n')
		}
		return
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		collectText(child, source, sb)
		if _, isBlock := child.(*ast.Paragraph); isBlock {
			sb.WriteByte('\n')
		}
	}
}

// docx is a zip archive; the body text lives in word/document.xml as <w:t>
// runs grouped into <w:p> paragraphs.
func parseDocx(path string) ([]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx archive failed: %w", err)
	}
	defer archive.Close()

	var doc io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return nil, fmt.Errorf("open document.xml failed: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("docx has no word/document.xml")
	}
	defer doc.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	decoder := xml.NewDecoder(doc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml failed: %w", err)
		}
		switch tok := token.(type) {
		case xml.StartElement:
			if tok.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(current.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(tok)
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		paragraphs = append(paragraphs, s)
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}
	return []string{strings.Join(paragraphs, "\n")}, nil
}
