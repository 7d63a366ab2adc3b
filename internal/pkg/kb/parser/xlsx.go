package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxParser 按工作表抽取 XLSX 文本，每表冠以表名标记，
// 行内单元格以 " | " 连接，空行跳过。
type xlsxParser struct{}

func (p *xlsxParser) Parse(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var lines []string
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			empty := true
			for _, cell := range row {
				trimmed := strings.TrimSpace(cell)
				if trimmed != "" {
					empty = false
				}
				cells = append(cells, trimmed)
			}
			if empty {
				continue
			}
			lines = append(lines, strings.Join(cells, " | "))
		}

		if len(lines) > 0 {
			sheets = append(sheets, fmt.Sprintf("[Sheet: %s]\n%s", sheetName, strings.Join(lines, "\n")))
		}
	}

	return strings.Join(sheets, "\n\n"), nil
}
