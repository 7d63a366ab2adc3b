// Package pool 提供基于 ants 的协程池封装，统一管理后台任务的并发执行。
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Type 表示协程池的用途类型。
type Type string

const (
	// DefaultPool 默认通用池。
	DefaultPool Type = "default"
	// IngestPool 文档摄取处理池。
	IngestPool Type = "ingest"
	// BackgroundPool 后台任务池（搜索历史写入等非关键路径任务）。
	BackgroundPool Type = "background"
	// CallbackPool 回调任务池。
	CallbackPool Type = "callback"
)

// Config 协程池配置。
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数）。
	Capacity int
	// ExpiryDuration 空闲 worker 回收时间。
	ExpiryDuration time.Duration
	// PreAlloc 是否预分配 worker 队列。
	PreAlloc bool
	// Nonblocking 池满时 Submit 是否立即返回错误。
	Nonblocking bool
	// MaxBlockingTasks 阻塞模式下最大等待任务数。
	MaxBlockingTasks int
	// PanicHandler 任务 panic 处理函数。
	PanicHandler func(interface{})
}

// DefaultConfig 返回默认池配置。
func DefaultConfig() *Config {
	return &Config{
		Capacity:       100,
		ExpiryDuration: 10 * time.Second,
		PreAlloc:       false,
		Nonblocking:    false,
	}
}

// IngestPoolConfig 返回文档摄取池配置。
// 摄取任务涉及解析、嵌入等重操作，容量较小且阻塞提交。
func IngestPoolConfig() *Config {
	return &Config{
		Capacity:         10,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		Nonblocking:      false,
		MaxBlockingTasks: 50,
	}
}

// BackgroundPoolConfig 返回后台任务池配置。
// 后台任务允许丢弃，池满时直接返回错误由调用方降级。
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         50,
		ExpiryDuration:   60 * time.Second,
		PreAlloc:         false,
		Nonblocking:      true,
		MaxBlockingTasks: 100,
	}
}

// CallbackPoolConfig 返回回调池配置。
func CallbackPoolConfig() *Config {
	return &Config{
		Capacity:       30,
		ExpiryDuration: 30 * time.Second,
		PreAlloc:       false,
		Nonblocking:    false,
	}
}

// Stats 协程池运行统计。
type Stats struct {
	Name      string `json:"name"`
	Type      Type   `json:"type"`
	Capacity  int    `json:"capacity"`
	Running   int    `json:"running"`
	Free      int    `json:"free"`
	Waiting   int    `json:"waiting"`
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// Pool 封装 ants.Pool，附带名称、类型与统计信息。
type Pool struct {
	name   string
	typ    Type
	pool   *ants.Pool
	config *Config

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64

	closed   atomic.Bool
	closedMu sync.Mutex
}

// NewPool 创建命名协程池。
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if name == "" {
		return nil, ErrInvalidPoolName
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	antsPool, err := ants.NewPool(config.Capacity, buildAntsOptions(name, config)...)
	if err != nil {
		return nil, err
	}

	return &Pool{
		name:   name,
		typ:    typ,
		pool:   antsPool,
		config: config,
	}, nil
}

func buildAntsOptions(name string, config *Config) []ants.Option {
	opts := []ants.Option{}

	if config.ExpiryDuration > 0 {
		opts = append(opts, ants.WithExpiryDuration(config.ExpiryDuration))
	}
	if config.PreAlloc {
		opts = append(opts, ants.WithPreAlloc(true))
	}
	if config.Nonblocking {
		opts = append(opts, ants.WithNonblocking(true))
	}
	if config.MaxBlockingTasks > 0 {
		opts = append(opts, ants.WithMaxBlockingTasks(config.MaxBlockingTasks))
	}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(p interface{}) {
			logger.Errorw("协程池任务 panic", "pool", name, "panic", p)
		}
	}
	opts = append(opts, ants.WithPanicHandler(panicHandler))

	return opts
}

// Name 返回池名称。
func (p *Pool) Name() string { return p.name }

// Type 返回池类型。
func (p *Pool) Type() Type { return p.typ }

// Submit 提交任务到池中执行。
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				panic(r) // 交由 ants PanicHandler 处理
			}
			p.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		p.failed.Add(1)
		return err
	}
	return nil
}

// SubmitWithContext 提交任务，提交前检查 context 是否已取消。
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return p.Submit(task)
}

// Tune 动态调整池容量。
func (p *Pool) Tune(capacity int) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.pool.Tune(capacity)
	return nil
}

// Stats 返回当前运行统计。
func (p *Pool) Stats() Stats {
	return Stats{
		Name:      p.name,
		Type:      p.typ,
		Capacity:  p.pool.Cap(),
		Running:   p.pool.Running(),
		Free:      p.pool.Free(),
		Waiting:   p.pool.Waiting(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Release 释放池资源。
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}
	p.closed.Store(true)
	p.pool.Release()
}

// ReleaseTimeout 在超时时间内等待任务完成后释放池。
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}
