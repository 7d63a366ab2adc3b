package vstore

import (
	"context"
	"sort"
	"sync"

	"github.com/kart-io/knowledge-x/internal/pkg/kb/textutil"
)

// Memory 进程内向量索引，仅用于开发与测试。
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory 创建内存向量索引。
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// EnsureCollection 实现 VectorStore。
func (m *Memory) EnsureCollection(_ context.Context) error {
	return nil
}

// Upsert 实现 VectorStore。
func (m *Memory) Upsert(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range entries {
		m.entries[entry.Key] = entry
	}
	return nil
}

// Search 实现 VectorStore，以余弦相似度排序。
func (m *Memory) Search(_ context.Context, vector []float32, topK int, companyID int64) ([]Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]Candidate, 0, len(m.entries))
	for _, entry := range m.entries {
		if entry.CompanyID != companyID {
			continue
		}
		score := float32(textutil.CosineSimilarity(vector, entry.Vector))
		candidates = append(candidates, Candidate{
			Key:        entry.Key,
			Score:      score,
			DocumentID: entry.DocumentID,
			CompanyID:  entry.CompanyID,
			ChunkIndex: entry.ChunkIndex,
			Filename:   entry.Filename,
			ChunkText:  entry.ChunkText,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// DeleteByDocument 实现 VectorStore。
func (m *Memory) DeleteByDocument(_ context.Context, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if entry.DocumentID == documentID {
			delete(m.entries, key)
		}
	}
	return nil
}

// Stats 实现 VectorStore。
func (m *Memory) Stats(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// Close 实现 VectorStore。
func (m *Memory) Close(_ context.Context) error {
	return nil
}
