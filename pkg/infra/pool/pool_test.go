package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name     string
		poolName string
		config   *Config
		wantErr  error
	}{
		{"正常创建", "worker", DefaultConfig(), nil},
		{"空名称", "", DefaultConfig(), ErrInvalidPoolName},
		{"非法容量", "worker", &Config{Capacity: 0}, ErrInvalidCapacity},
		{"nil 配置使用默认值", "worker", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPool(tt.poolName, DefaultPool, tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer p.Release()
			assert.Equal(t, tt.poolName, p.Name())
			assert.Equal(t, DefaultPool, p.Type())
		})
	}
}

func TestPool_SubmitAndStats(t *testing.T) {
	p, err := NewPool("stats", DefaultPool, DefaultConfig())
	require.NoError(t, err)
	defer p.Release()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
		}))
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		stats := p.Stats()
		return stats.Submitted == 10 && stats.Completed == 10 && stats.Failed == 0
	}, time.Second, 10*time.Millisecond)
}

func TestPool_SubmitAfterRelease(t *testing.T) {
	p, err := NewPool("closed", DefaultPool, DefaultConfig())
	require.NoError(t, err)

	p.Release()
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestPool_PanicRecovery(t *testing.T) {
	done := make(chan struct{})
	config := DefaultConfig()
	config.PanicHandler = func(interface{}) { close(done) }

	p, err := NewPool("panicky", DefaultPool, config)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panic handler 未被调用")
	}

	assert.Eventually(t, func() bool {
		return p.Stats().Failed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPool_Tune(t *testing.T) {
	p, err := NewPool("tunable", DefaultPool, DefaultConfig())
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Tune(7))
	assert.Equal(t, 7, p.Stats().Capacity)
	assert.ErrorIs(t, p.Tune(0), ErrInvalidCapacity)
}

func TestManager(t *testing.T) {
	m := NewManager()
	defer m.ReleaseAll()

	_, err := m.Register("ingest", IngestPool, IngestPoolConfig())
	require.NoError(t, err)

	// 重复注册
	_, err = m.Register("ingest", IngestPool, IngestPoolConfig())
	assert.ErrorIs(t, err, ErrPoolExists)

	p, err := m.Get("ingest")
	require.NoError(t, err)
	assert.Equal(t, IngestPool, p.Type())

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrPoolNotFound)

	byType, err := m.GetByType(IngestPool)
	require.NoError(t, err)
	assert.Equal(t, "ingest", byType.Name())

	done := make(chan struct{})
	require.NoError(t, m.SubmitToType(IngestPool, func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("任务未执行")
	}

	assert.ElementsMatch(t, []string{"ingest"}, m.List())
	assert.Contains(t, m.Stats(), "ingest")
}

func TestManager_ReleaseAll(t *testing.T) {
	m := NewManager()
	_, err := m.Register("a", DefaultPool, DefaultConfig())
	require.NoError(t, err)

	m.ReleaseAll()
	_, err = m.Get("a")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
