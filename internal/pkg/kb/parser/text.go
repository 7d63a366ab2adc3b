package parser

import "os"

// textParser 读取纯文本与 Markdown 文件，内容原样返回。
type textParser struct{}

func (p *textParser) Parse(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
