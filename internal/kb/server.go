// Package kb assembles and runs the knowledge base server.
package kb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-x/internal/kb/biz"
	"github.com/kart-io/knowledge-x/internal/kb/handler"
	"github.com/kart-io/knowledge-x/internal/kb/router"
	"github.com/kart-io/knowledge-x/internal/kb/store"
	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/chunker"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/parser"
	dbcomp "github.com/kart-io/knowledge-x/pkg/component/db"
	milvuscomp "github.com/kart-io/knowledge-x/pkg/component/milvus"
	rediscomp "github.com/kart-io/knowledge-x/pkg/component/redis"
	"github.com/kart-io/knowledge-x/pkg/component/storage"
	"github.com/kart-io/knowledge-x/pkg/infra/middleware"
	"github.com/kart-io/knowledge-x/pkg/infra/pool"
	"github.com/kart-io/knowledge-x/pkg/llm"
	dbopts "github.com/kart-io/knowledge-x/pkg/options/db"
	kbopts "github.com/kart-io/knowledge-x/pkg/options/kb"
	llmopts "github.com/kart-io/knowledge-x/pkg/options/llm"
	logopts "github.com/kart-io/knowledge-x/pkg/options/logger"
	milvusopts "github.com/kart-io/knowledge-x/pkg/options/milvus"
	redisopts "github.com/kart-io/knowledge-x/pkg/options/redis"
	httpopts "github.com/kart-io/knowledge-x/pkg/options/server/http"

	// 注册内置 embedding providers
	_ "github.com/kart-io/knowledge-x/pkg/llm/fake"
	_ "github.com/kart-io/knowledge-x/pkg/llm/gemini"
	_ "github.com/kart-io/knowledge-x/pkg/llm/openai"
)

// Config holds everything needed to assemble a Server.
type Config struct {
	LogOptions    *logopts.Options
	HTTPOptions   *httpopts.Options
	DBOptions     *dbopts.Options
	RedisOptions  *redisopts.Options
	MilvusOptions *milvusopts.Options
	LLMOptions    *llmopts.ProviderOptions
	KBOptions     *kbopts.Options

	ShutdownTimeout time.Duration
}

// Server is the assembled knowledge base server.
type Server struct {
	httpServer *http.Server
	ds         store.Factory
	vs         vstore.VectorStore

	shutdownTimeout time.Duration
}

// NewServer builds the full dependency graph from the config.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := pool.InitGlobal(); err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	db, err := dbcomp.New(cfg.DBOptions)
	if err != nil {
		return nil, err
	}
	if err := store.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	ds := store.NewStore(db)

	files, err := storage.New(cfg.KBOptions.StoragePath)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewEmbeddingProvider(cfg.LLMOptions.Provider, cfg.LLMOptions.ToConfigMap())
	if err != nil {
		return nil, err
	}

	vs, err := cfg.newVectorStore(ctx, provider)
	if err != nil {
		return nil, err
	}

	chk, err := chunker.New(cfg.KBOptions.ChunkSize, cfg.KBOptions.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	b := biz.NewBiz(ds, vs, provider, parser.NewRegistry(), chk, files, cfg.KBOptions)
	h := handler.NewHandler(b)

	rateLimit, err := cfg.newRateLimit(ctx)
	if err != nil {
		return nil, err
	}

	engine := router.NewEngine()
	router.Register(engine, h, rateLimit)

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	return &Server{
		httpServer:      httpServer,
		ds:              ds,
		vs:              vs,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// newVectorStore selects Milvus or the in-memory index.
func (cfg *Config) newVectorStore(ctx context.Context, provider llm.EmbeddingProvider) (vstore.VectorStore, error) {
	if !cfg.MilvusOptions.Enabled {
		logger.Warnw("Milvus 未启用，使用内存向量索引（仅限开发环境）")
		return vstore.NewMemory(), nil
	}

	client, err := milvuscomp.New(ctx, cfg.MilvusOptions)
	if err != nil {
		return nil, err
	}

	vs := vstore.NewMilvus(client, cfg.KBOptions.Collection, provider.Dimension())
	if err := vs.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return vs, nil
}

// newRateLimit builds the rate limit middleware, Redis-backed when enabled.
func (cfg *Config) newRateLimit(ctx context.Context) (gin.HandlerFunc, error) {
	limitCfg := middleware.RateLimitConfig{
		Limit:  cfg.KBOptions.RateLimit,
		Window: cfg.KBOptions.RateLimitWindow,
	}

	if cfg.RedisOptions.Enabled {
		client, err := rediscomp.New(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, err
		}
		limitCfg.Limiter = middleware.NewRedisRateLimiter(client, limitCfg.Limit, limitCfg.Window)
	}

	return middleware.RateLimit(limitCfg), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("shutting down", "timeout", s.shutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err)
	}

	if err := pool.GetGlobal().ReleaseAllTimeout(s.shutdownTimeout); err != nil {
		logger.Warnw("worker pool shutdown incomplete", "error", err)
	}

	if err := s.vs.Close(shutdownCtx); err != nil {
		logger.Warnw("vector store close failed", "error", err)
	}
	if err := s.ds.Close(); err != nil {
		logger.Warnw("database close failed", "error", err)
	}

	logger.Infow("server stopped")
	return nil
}
