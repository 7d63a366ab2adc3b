package biz

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMakeSnippet_短文本原样返回(t *testing.T) {
	text := "a short chunk"
	assert.Equal(t, text, makeSnippet(text, "chunk", 200))
}

func TestMakeSnippet_选中含查询词的窗口(t *testing.T) {
	filler := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	text := filler + "the database migration guide explains everything " + filler

	snippet := makeSnippet(text, "database migration", 120)

	assert.Contains(t, snippet, "database")
	assert.LessOrEqual(t, len(snippet), 120+6) // 两端省略号
}

func TestMakeSnippet_前导省略号(t *testing.T) {
	filler := strings.Repeat("aaaa bbbb cccc dddd eeee ", 20)
	text := filler + "needle keyword appears here"

	snippet := makeSnippet(text, "needle keyword", 100)
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.Contains(t, snippet, "needle")
}

func TestMakeSnippet_句子边界截断(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)

	snippet := makeSnippet(text, "quick fox", 150)
	// 命中句号边界时不追加尾部省略号
	assert.False(t, strings.HasSuffix(snippet, " ..."))
	assert.NotEmpty(t, snippet)
}

func TestMakeSnippet_多字节文本不截断字符(t *testing.T) {
	text := strings.Repeat("远程办公政策说明文档内容。", 40)

	snippet := makeSnippet(text, "政策 说明文档", 200)

	assert.True(t, utf8.ValidString(snippet))
	assert.LessOrEqual(t, utf8.RuneCountInString(snippet), 200+6)
	assert.Contains(t, snippet, "说明文档")
}

func TestQueryWords(t *testing.T) {
	words := queryWords("Is Go a FUN language")
	assert.Equal(t, []string{"fun", "language"}, words)
}
