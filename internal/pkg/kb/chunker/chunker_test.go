package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{"正常配置", 800, 100, false},
		{"零重叠", 100, 0, false},
		{"块大小为零", 0, 0, true},
		{"重叠不小于块大小", 100, 100, true},
		{"负重叠", 100, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.chunkSize, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestSplit_空文本(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	assert.Nil(t, c.Split("", 1))
	assert.Nil(t, c.Split("   \n\n  \n ", 1))
}

func TestSplit_短文本单块(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	chunks := c.Split("hello world", 42)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Greater(t, chunks[0].TokenCount, 0)
	assert.True(t, strings.HasPrefix(chunks[0].Key, "doc_42_chunk_0_"))
}

func TestSplit_段落合并(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	text := "first paragraph here\n\nsecond paragraph here"
	chunks := c.Split(text, 1)
	require.Len(t, chunks, 1)
	assert.Equal(t, "first paragraph here\n\nsecond paragraph here", chunks[0].Content)
}

func TestSplit_超限产生多块(t *testing.T) {
	c, err := New(20, 0)
	require.NoError(t, err)

	var paras []string
	for i := 0; i < 10; i++ {
		paras = append(paras, fmt.Sprintf("paragraph number %d with several words inside", i))
	}
	chunks := c.Split(strings.Join(paras, "\n\n"), 7)
	require.Greater(t, len(chunks), 1)

	// 序号连续且键唯一
	keys := make(map[string]struct{})
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Greater(t, chunk.TokenCount, 0)
		_, dup := keys[chunk.Key]
		assert.False(t, dup, "duplicate chunk key %s", chunk.Key)
		keys[chunk.Key] = struct{}{}
	}

	// 所有段落内容都被覆盖
	all := strings.Join(collectContents(chunks), "\n\n")
	for _, para := range paras {
		assert.Contains(t, all, para)
	}
}

func TestSplit_重叠种子(t *testing.T) {
	c, err := New(15, 14)
	require.NoError(t, err)

	p1 := "the first paragraph carries a handful of words"
	p2 := "the second paragraph carries a handful of words"
	p3 := "the third paragraph carries a handful of words"
	chunks := c.Split(p1+"\n\n"+p2+"\n\n"+p3, 1)
	require.Greater(t, len(chunks), 1)

	// 前一块的末段应作为后一块的起始段
	for i := 1; i < len(chunks); i++ {
		prevParas := strings.Split(chunks[i-1].Content, "\n\n")
		lastPara := prevParas[len(prevParas)-1]
		if c.CountTokens(lastPara) < 14 {
			assert.True(t, strings.HasPrefix(chunks[i].Content, lastPara),
				"chunk %d should start with the previous chunk's last paragraph", i)
		}
	}
}

func TestSplit_超长段落按句子切分(t *testing.T) {
	c, err := New(25, 5)
	require.NoError(t, err)

	var sentences []string
	for i := 0; i < 12; i++ {
		sentences = append(sentences, fmt.Sprintf("this is sentence number %d with extra words", i))
	}
	para := strings.Join(sentences, ". ")
	require.Greater(t, c.CountTokens(para), 25)

	chunks := c.Split(para, 1)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		// 句子切分的块不含段落分隔
		assert.NotContains(t, chunk.Content, "\n\n")
	}
}

func TestCountTokens(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, c.CountTokens(""))
	assert.Greater(t, c.CountTokens("hello world"), 0)
}

func collectContents(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Content)
	}
	return out
}
