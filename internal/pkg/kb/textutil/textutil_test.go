package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"相同向量", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"正交向量", []float32{1, 0}, []float32{0, 1}, 0},
		{"相反向量", []float32{1, 0}, []float32{-1, 0}, -1},
		{"维度不一致", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"零向量", []float32{0, 0}, []float32{1, 1}, 0},
		{"空向量", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
}

func TestTruncate_多字节文本不截断字符(t *testing.T) {
	s := strings.Repeat("知识库摘要内容", 100)

	got := Truncate(s, 500)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 503, utf8.RuneCountInString(got))
	assert.Equal(t, string([]rune(s)[:500])+"...", got)
}
