package parser

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_文本文件原样返回(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()

	content := "# Title\n\nSome markdown body.\n"
	path := writeFile(t, dir, "note.md", content)

	text, err := r.Parse(path, "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestParse_文件不存在(t *testing.T) {
	r := NewRegistry()

	_, err := r.Parse("/nonexistent/file.txt", "text/plain")
	assert.ErrorIs(t, err, errors.ErrKBFileNotFound)
}

func TestParse_不支持的格式(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()
	path := writeFile(t, dir, "image.png", "not really an image")

	_, err := r.Parse(path, "image/png")
	assert.ErrorIs(t, err, errors.ErrKBUnsupportedFormat)
}

func TestParse_空白内容(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()
	path := writeFile(t, dir, "blank.txt", "   \n\n \t ")

	_, err := r.Parse(path, "text/plain")
	assert.ErrorIs(t, err, errors.ErrKBEmptyContent)
}

func TestParse_MIME优先于扩展名(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()

	// 扩展名伪装为 .bin，MIME 正确标注为文本
	path := writeFile(t, dir, "data.bin", "plain body")

	text, err := r.Parse(path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain body", text)
}

func TestParse_XLSX(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()
	path := filepath.Join(dir, "table.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "value"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "alpha"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	text, err := r.Parse(path, "")
	require.NoError(t, err)

	assert.Contains(t, text, "[Sheet: Sheet1]")
	assert.Contains(t, text, "name | value")
	assert.Contains(t, text, "alpha | 42")
}

const docxBodyXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t></w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>cell one</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>cell two</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestParse_DOCX(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")

	writeZip(t, path, map[string]string{"word/document.xml": docxBodyXML})

	text, err := r.Parse(path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.Contains(t, text, "cell one | cell two")
}

const pptxSlideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:sp>
        <p:txBody>
          <a:p><a:r><a:t>Slide title</a:t></a:r></a:p>
        </p:txBody>
      </p:sp>
      <p:sp>
        <p:txBody>
          <a:p><a:r><a:t>Bullet text</a:t></a:r></a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`

func TestParse_PPTX(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.pptx")

	writeZip(t, path, map[string]string{
		"ppt/slides/slide1.xml": pptxSlideXML,
	})

	text, err := r.Parse(path, "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	require.NoError(t, err)

	assert.Contains(t, text, "[Slide 1]")
	assert.Contains(t, text, "Slide title")
	assert.Contains(t, text, "Bullet text")
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	assert.Contains(t, exts, ".pdf")
	assert.Contains(t, exts, ".docx")
	assert.Contains(t, exts, ".txt")
	assert.Contains(t, exts, ".md")
}
