// Package parser 从多种文档格式中抽取纯文本。
//
// 支持 PDF、DOCX、PPTX、XLSX、TXT 与 Markdown。格式识别优先匹配
// MIME 类型子串，其次匹配文件扩展名。
package parser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// Parser 从指定路径的文件中抽取文本。
type Parser interface {
	Parse(path string) (string, error)
}

// Registry 按格式分发的解析器集合。
type Registry struct {
	pdf  Parser
	docx Parser
	pptx Parser
	xlsx Parser
	text Parser
}

// NewRegistry 创建包含全部内置解析器的注册表。
func NewRegistry() *Registry {
	return &Registry{
		pdf:  &pdfParser{},
		docx: &docxParser{},
		pptx: &pptxParser{},
		xlsx: &xlsxParser{},
		text: &textParser{},
	}
}

// SupportedExtensions 返回支持的文件扩展名。
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".xlsx", ".txt", ".md"}
}

// Parse 解析文件并返回抽取的文本。
//
// 文件不存在返回 ErrKBFileNotFound；格式不支持返回 ErrKBUnsupportedFormat；
// 抽取结果为空白返回 ErrKBEmptyContent。
func (r *Registry) Parse(path, mimeType string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", errors.ErrKBFileNotFound.WithCause(err)
		}
		return "", errors.ErrKBParseFailed.WithCause(err)
	}

	p := r.selectParser(path, mimeType)
	if p == nil {
		return "", errors.ErrKBUnsupportedFormat.WithMessagef(
			"unsupported format: %s", filepath.Ext(path))
	}

	text, err := p.Parse(path)
	if err != nil {
		return "", errors.ErrKBParseFailed.WithCause(err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.ErrKBEmptyContent
	}
	return text, nil
}

// selectParser 先按 MIME 子串匹配，再退化为扩展名匹配。
func (r *Registry) selectParser(path, mimeType string) Parser {
	mime := strings.ToLower(mimeType)
	switch {
	case mime == "":
	case strings.Contains(mime, "pdf"):
		return r.pdf
	case strings.Contains(mime, "wordprocessingml"), strings.Contains(mime, "msword"):
		return r.docx
	case strings.Contains(mime, "presentationml"):
		return r.pptx
	case strings.Contains(mime, "spreadsheetml"):
		return r.xlsx
	case strings.HasPrefix(mime, "text/"):
		return r.text
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return r.pdf
	case ".docx":
		return r.docx
	case ".pptx":
		return r.pptx
	case ".xlsx":
		return r.xlsx
	case ".txt", ".md":
		return r.text
	}
	return nil
}
