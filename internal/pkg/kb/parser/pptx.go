package parser

import (
	"archive/zip"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// pptxParser 按幻灯片顺序抽取 PPTX 文本，每页冠以页码标记，
// 每个含文字的形状占一行。
type pptxParser struct{}

type pptxSlide struct {
	Shapes []pptxShape `xml:"cSld>spTree>sp"`
}

type pptxShape struct {
	Paragraphs []pptxTextPara `xml:"txBody>p"`
}

type pptxTextPara struct {
	Runs []pptxTextRun `xml:"r"`
}

type pptxTextRun struct {
	Text string `xml:"t"`
}

func (s pptxShape) text() string {
	var lines []string
	for _, para := range s.Paragraphs {
		var sb strings.Builder
		for _, run := range para.Runs {
			sb.WriteString(run.Text)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func (p *pptxParser) Parse(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	slideNames := collectSlideNames(zr)

	var blocks []string
	for i, name := range slideNames {
		var slide pptxSlide
		if err := decodeXML(zr, name, &slide); err != nil {
			continue
		}

		lines := []string{fmt.Sprintf("[Slide %d]", i+1)}
		for _, shape := range slide.Shapes {
			if text := shape.text(); text != "" {
				lines = append(lines, text)
			}
		}
		if len(lines) > 1 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}

// collectSlideNames 返回按编号排序的幻灯片条目名。
func collectSlideNames(zr *zip.ReadCloser) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return slideNumber(names[i]) < slideNumber(names[j])
	})
	return names
}

func slideNumber(name string) int {
	numStr := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return n
}
