package pool

import (
	"sync"
	"time"
)

// Manager 管理一组命名协程池。
type Manager struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewManager 创建池管理器。
func NewManager() *Manager {
	return &Manager{
		pools: make(map[string]*Pool),
	}
}

// Register 注册一个命名池。同名池已存在时返回 ErrPoolExists。
func (m *Manager) Register(name string, typ Type, config *Config) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[name]; ok {
		return nil, ErrPoolExists
	}

	p, err := NewPool(name, typ, config)
	if err != nil {
		return nil, err
	}
	m.pools[name] = p
	return p, nil
}

// Get 按名称获取池。
func (m *Manager) Get(name string) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[name]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// GetByType 返回第一个匹配类型的池。
func (m *Manager) GetByType(typ Type) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pools {
		if p.typ == typ {
			return p, nil
		}
	}
	return nil, ErrPoolNotFound
}

// Submit 提交任务到指定名称的池。
func (m *Manager) Submit(name string, task func()) error {
	p, err := m.Get(name)
	if err != nil {
		return err
	}
	return p.Submit(task)
}

// SubmitToType 提交任务到指定类型的池。
func (m *Manager) SubmitToType(typ Type, task func()) error {
	p, err := m.GetByType(typ)
	if err != nil {
		return err
	}
	return p.Submit(task)
}

// List 返回所有池名称。
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	return names
}

// Stats 返回所有池的统计信息。
func (m *Manager) Stats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]Stats, len(m.pools))
	for name, p := range m.pools {
		stats[name] = p.Stats()
	}
	return stats
}

// Tune 调整指定池容量。
func (m *Manager) Tune(name string, capacity int) error {
	p, err := m.Get(name)
	if err != nil {
		return err
	}
	return p.Tune(capacity)
}

// ReleaseAll 释放所有池。
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pools {
		p.Release()
	}
	m.pools = make(map[string]*Pool)
}

// ReleaseAllTimeout 在超时时间内等待所有池任务完成后释放。
// 返回最后一个释放失败的错误。
func (m *Manager) ReleaseAllTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for _, p := range m.pools {
		if err := p.ReleaseTimeout(timeout); err != nil {
			lastErr = err
		}
	}
	m.pools = make(map[string]*Pool)
	return lastErr
}
