package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kart-io/logger"
)

var (
	globalManager *Manager
	globalMu      sync.Mutex
	initialized   atomic.Uint32
)

// GlobalConfig 全局池管理器配置。
type GlobalConfig struct {
	// DefaultConfig 默认池配置。
	DefaultConfig *Config
	// IngestConfig 摄取池配置。
	IngestConfig *Config
	// BackgroundConfig 后台池配置。
	BackgroundConfig *Config
}

// InitGlobal 使用默认配置初始化全局池管理器。
func InitGlobal() error {
	return InitGlobalWithConfig(&GlobalConfig{})
}

// InitGlobalWithConfig 使用指定配置初始化全局池管理器。
func InitGlobalWithConfig(cfg *GlobalConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if initialized.Load() == 1 {
		return nil
	}

	if cfg == nil {
		cfg = &GlobalConfig{}
	}
	if cfg.DefaultConfig == nil {
		cfg.DefaultConfig = DefaultConfig()
	}
	if cfg.IngestConfig == nil {
		cfg.IngestConfig = IngestPoolConfig()
	}
	if cfg.BackgroundConfig == nil {
		cfg.BackgroundConfig = BackgroundPoolConfig()
	}

	m := NewManager()
	if _, err := m.Register(string(DefaultPool), DefaultPool, cfg.DefaultConfig); err != nil {
		return err
	}
	if _, err := m.Register(string(IngestPool), IngestPool, cfg.IngestConfig); err != nil {
		m.ReleaseAll()
		return err
	}
	if _, err := m.Register(string(BackgroundPool), BackgroundPool, cfg.BackgroundConfig); err != nil {
		m.ReleaseAll()
		return err
	}

	globalManager = m
	initialized.Store(1)
	logger.Infow("全局协程池管理器初始化完成", "pools", m.List())
	return nil
}

// GetGlobal 返回全局池管理器，未初始化时自动使用默认配置初始化。
func GetGlobal() *Manager {
	if initialized.Load() == 0 {
		if err := InitGlobal(); err != nil {
			logger.Errorw("全局协程池管理器初始化失败", "error", err)
		}
	}
	return globalManager
}

// Submit 提交任务到全局默认池。
func Submit(task func()) error {
	return GetGlobal().SubmitToType(DefaultPool, task)
}

// SubmitTo 提交任务到全局指定类型的池。
func SubmitTo(typ Type, task func()) error {
	return GetGlobal().SubmitToType(typ, task)
}

// SubmitWithContext 提交任务到全局默认池，提交前检查 context。
func SubmitWithContext(ctx context.Context, task func()) error {
	p, err := GetGlobal().GetByType(DefaultPool)
	if err != nil {
		return err
	}
	return p.SubmitWithContext(ctx, task)
}

// StatsGlobal 返回全局所有池的统计。
func StatsGlobal() map[string]Stats {
	return GetGlobal().Stats()
}

// CloseGlobal 关闭全局池管理器。
func CloseGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if initialized.Load() == 0 {
		return
	}
	globalManager.ReleaseAll()
	globalManager = nil
	initialized.Store(0)
}

// ResetGlobal 重置全局池管理器，仅用于测试。
func ResetGlobal() {
	CloseGlobal()
}
