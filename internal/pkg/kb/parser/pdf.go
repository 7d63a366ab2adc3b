package parser

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfParser 逐页抽取 PDF 文本，每页冠以页码标记，空页跳过。
type pdfParser struct{}

func (p *pdfParser) Parse(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页抽取失败不中断整份文档
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("[Page %d]\n%s", pageNum, text))
	}

	return strings.Join(pages, "\n\n"), nil
}
