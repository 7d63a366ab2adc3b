// Package chunker 将文档文本切分为 token 受限的块，供嵌入与检索使用。
//
// 切分策略：
//   - 优先按空行（段落）切分，段落为空时退化为按单行切分
//   - 贪心累积段落直到超过 token 上限
//   - 关闭块时，若末段 token 数小于重叠预算，则以末段作为下一块的种子，
//     保证跨块语义连续
//   - 单段超限时按句号切分，句子级贪心累积，不做重叠
package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// Chunk 一个切分出的文档块。
type Chunk struct {
	// Index 块在文档内的序号，从 0 开始。
	Index int
	// Key 全局唯一的块标识。
	Key string
	// Content 块文本内容。
	Content string
	// TokenCount 块的 token 数。
	TokenCount int
}

// Chunker 文本切分器。
type Chunker struct {
	chunkSize int
	overlap   int
	encoder   *tiktoken.Tiktoken
}

// New 创建切分器。chunkSize 为块 token 上限，overlap 为块间重叠预算。
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive")
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunker: overlap must be in [0, chunk size)")
	}

	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("chunker: load encoding %s: %w", encodingName, err)
	}

	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		encoder:   encoder,
	}, nil
}

// CountTokens 返回文本的 token 数。
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// Split 将文本切分为块序列。docID 用于生成块标识。
func (c *Chunker) Split(text string, docID int64) []Chunk {
	paragraphs := splitNonEmpty(text, "\n\n")
	if len(paragraphs) == 0 {
		paragraphs = splitNonEmpty(text, "\n")
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	appendChunk := func(paras []string) {
		content := strings.Join(paras, "\n\n")
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Key:        chunkKey(docID, len(chunks)),
			Content:    content,
			TokenCount: c.CountTokens(content),
		})
	}

	for _, para := range paragraphs {
		paraTokens := c.CountTokens(para)

		// 单段超限：按句子切分，不参与重叠
		if paraTokens > c.chunkSize {
			if len(current) > 0 {
				appendChunk(current)
				current = nil
				currentTokens = 0
			}
			for _, sentenceGroup := range c.splitOversized(para) {
				appendChunk([]string{sentenceGroup})
			}
			continue
		}

		if currentTokens+paraTokens > c.chunkSize && len(current) > 0 {
			appendChunk(current)

			last := current[len(current)-1]
			lastTokens := c.CountTokens(last)
			if c.overlap > 0 && lastTokens < c.overlap {
				// 末段作为重叠种子进入下一块
				current = []string{last, para}
				currentTokens = lastTokens + paraTokens
			} else {
				current = []string{para}
				currentTokens = paraTokens
			}
			continue
		}

		current = append(current, para)
		currentTokens += paraTokens
	}

	if len(current) > 0 {
		appendChunk(current)
	}
	return chunks
}

// splitOversized 将超限段落按句号边界切分为多组句子。
func (c *Chunker) splitOversized(para string) []string {
	sentences := strings.Split(para, ". ")

	var groups []string
	var group []string
	groupTokens := 0

	for _, sentence := range sentences {
		sentenceTokens := c.CountTokens(sentence)
		if groupTokens+sentenceTokens > c.chunkSize && len(group) > 0 {
			groups = append(groups, strings.Join(group, ". "))
			group = nil
			groupTokens = 0
		}
		group = append(group, sentence)
		groupTokens += sentenceTokens
	}
	if len(group) > 0 {
		groups = append(groups, strings.Join(group, ". "))
	}
	return groups
}

func splitNonEmpty(text, sep string) []string {
	parts := strings.Split(text, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func chunkKey(docID int64, index int) string {
	return fmt.Sprintf("doc_%d_chunk_%d_%s", docID, index, uuid.New().String()[:8])
}
