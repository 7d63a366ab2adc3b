// Package router wires the HTTP routes of the knowledge base service.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-x/internal/kb/handler"
	"github.com/kart-io/knowledge-x/pkg/infra/middleware"
)

// Register installs all routes on the engine. The rate limiter gates the
// search and processing groups.
func Register(engine *gin.Engine, h *handler.Handler, rateLimit gin.HandlerFunc) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")

	docs := v1.Group("/documents")
	{
		docs.POST("/upload", h.UploadDocument)
		docs.GET("", h.ListDocuments)
		docs.GET("/:id", h.GetDocument)
		docs.DELETE("/:id", h.DeleteDocument)
	}

	processing := v1.Group("/processing")
	processing.Use(rateLimit)
	{
		processing.POST("/process/:id", h.ProcessDocument)
		processing.POST("/process-all", h.ProcessAll)
		processing.GET("/status/:id", h.ProcessingStatus)
	}

	search := v1.Group("/search")
	search.Use(rateLimit)
	{
		search.POST("", h.Search)
		search.GET("/history", h.SearchHistory)
		search.GET("/filters", h.SearchFilters)
	}
}

// NewEngine creates a gin engine with the service middlewares installed.
func NewEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(middleware.Recovery(), middleware.RequestLogger())
	return engine
}
