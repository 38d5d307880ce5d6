package ingest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docassist/internal/domain"
)

func TestExt(t *testing.T) {
	assert.Equal(t, ".pdf", Ext("report.PDF"))
	assert.Equal(t, ".md", Ext(".md"))
	assert.Equal(t, ".txt", Ext("txt"))
	assert.Equal(t, "", Ext(""))
}

func TestExtract_PlainText(t *testing.T) {
	text, err := Extract([]byte("\xef\xbb\xbfhello world"), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	text, err = Extract([]byte("# Title\n\nBody"), "md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", text)
}

func TestExtract_Latin1Fallback(t *testing.T) {
	// "café" in ISO-8859-1 is not valid UTF-8.
	text, err := Extract([]byte{'c', 'a', 'f', 0xe9}, ".txt")
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte("x"), ".xlsx")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtract_MalformedFiles(t *testing.T) {
	_, err := Extract([]byte("not a pdf"), ".pdf")
	assert.ErrorIs(t, err, domain.ErrExtraction)

	_, err = Extract([]byte("not a zip"), ".docx")
	assert.ErrorIs(t, err, domain.ErrExtraction)

	_, err = Extract(buildZip(t, map[string]string{"other.xml": "<x/>"}), ".doc")
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_DOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:tab/><w:t>para.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	text, err := Extract(buildZip(t, map[string]string{"word/document.xml": doc}), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond\tpara.\n", text)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
