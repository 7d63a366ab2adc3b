package biz

import (
	"strings"
	"unicode/utf8"
)

// 滑动窗口步长（字符）。
const snippetStride = 50

// makeSnippet 从块文本中截取与查询最相关的片段。
//
// 文本不超过上限时原样返回。否则以固定步长滑动等长窗口，
// 按窗口内命中的查询词数选出最优窗口；窗口尾部落在句子或
// 词边界附近时在边界处截断，必要时补省略号。
// 长度与切分均以字符为单位，多字节文本不会被截断在字符中间。
func makeSnippet(text, query string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	words := queryWords(query)

	bestStart, bestScore := 0, -1
	for start := 0; start < len(runes); start += snippetStride {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.ToLower(string(runes[start:end]))

		score := 0
		for _, word := range words {
			if strings.Contains(window, word) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
		if end == len(runes) {
			break
		}
	}

	end := bestStart + maxLen
	hardCut := true
	if end >= len(runes) {
		end = len(runes)
		hardCut = false
	}
	window := string(runes[bestStart:end])

	if hardCut {
		// 尾部边界修整：优先句号，其次空格。分隔符均为 ASCII，
		// 在其字节下标处截断仍落在字符边界上。
		if idx := strings.LastIndex(window, ". "); idx >= int(0.7*float64(len(window))) {
			window = window[:idx+1]
			hardCut = false
		} else if idx := strings.LastIndex(window, " "); idx >= int(0.8*float64(len(window))) {
			window = window[:idx]
		}
	}

	var sb strings.Builder
	if bestStart > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(window)
	if hardCut {
		sb.WriteString("...")
	}
	return sb.String()
}

// queryWords 返回查询中长度大于 2 个字符的小写词。
func queryWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			words = append(words, f)
		}
	}
	return words
}
