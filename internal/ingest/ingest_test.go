package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Text(t *testing.T) {
	path := writeFile(t, "notes.txt", "line one\nline two\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "line one\nline two\n", docs[0].Content)
	assert.Equal(t, "notes.txt", docs[0].Source)
	assert.NotEmpty(t, docs[0].ID)
}

func TestLoad_TextIDsAreUnique(t *testing.T) {
	a := writeFile(t, "a.txt", "same content")
	b := writeFile(t, "b.txt", "same content")

	docsA, err := Load(a)
	require.NoError(t, err)
	docsB, err := Load(b)
	require.NoError(t, err)
	assert.NotEqual(t, docsA[0].ID, docsB[0].ID)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "report.pdf", "%PDF-1.4")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_EmptyDocument(t *testing.T) {
	path := writeFile(t, "blank.txt", "   \n\t\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestLoad_CSVOneChunkPerRow(t *testing.T) {
	path := writeFile(t, "people.csv", "name,role\nAda,engineer\nGrace,admiral\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "name: Ada\nrole: engineer", docs[0].Content)
	assert.Equal(t, "name: Grace\nrole: admiral", docs[1].Content)
	assert.Equal(t, "people.csv", docs[0].Source)
}

func TestLoad_CSVHeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", "name,role\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestLoad_CSVRaggedRow(t *testing.T) {
	path := writeFile(t, "ragged.csv", "name\nAda,extra\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "name: Ada\ncolumn2: extra", docs[0].Content)
}

func TestLoad_MarkdownChunksPerBlock(t *testing.T) {
	path := writeFile(t, "guide.md", "# Title\n\nFirst paragraph with **bold** text.\n\nSecond paragraph.\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "Title", docs[0].Content)
	assert.Equal(t, "First paragraph with bold text.", docs[1].Content)
	assert.Equal(t, "Second paragraph.", docs[2].Content)
}

func TestLoad_Docx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.docx")
	writeDocx(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Hello world\nSecond paragraph", docs[0].Content)
	assert.Equal(t, "memo.docx", docs[0].Source)
}

func TestLoad_DocxWithoutDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document.xml")
}

func writeDocx(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
