package parser

import (
	"archive/zip"
	"fmt"
	"strings"
)

// docxParser 抽取 DOCX 正文段落与表格文本。
// 段落在前，表格按行抽取且单元格以 " | " 连接。
type docxParser struct{}

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func (p docxParagraph) text() string {
	var sb strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Texts {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

func (p *docxParser) Parse(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var doc docxDocument
	if err := decodeXML(zr, "word/document.xml", &doc); err != nil {
		return "", fmt.Errorf("read docx body: %w", err)
	}

	var blocks []string
	for _, para := range doc.Body.Paragraphs {
		if text := strings.TrimSpace(para.text()); text != "" {
			blocks = append(blocks, text)
		}
	}

	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var parts []string
				for _, para := range cell.Paragraphs {
					if text := strings.TrimSpace(para.text()); text != "" {
						parts = append(parts, text)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			rowText := strings.Join(cells, " | ")
			if strings.TrimSpace(rowText) != "" {
				blocks = append(blocks, rowText)
			}
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}
