// Package handler implements the HTTP handlers for the knowledge base service.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-x/internal/kb/biz"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// Handler holds the business layer used by all routes.
type Handler struct {
	biz biz.IBiz
}

// NewHandler creates a Handler.
func NewHandler(b biz.IBiz) *Handler {
	return &Handler{biz: b}
}

// identity extracts the tenant and user from the trusted gateway headers.
func identity(c *gin.Context) (companyID, userID int64, err error) {
	companyID, err = strconv.ParseInt(c.GetHeader("X-Company-ID"), 10, 64)
	if err != nil || companyID <= 0 {
		return 0, 0, errors.ErrKBInvalidRequest.WithMessage("missing or invalid X-Company-ID header")
	}

	// 用户标识缺失时允许为 0（系统调用）
	if raw := c.GetHeader("X-User-ID"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 0 {
			return 0, 0, errors.ErrKBInvalidRequest.WithMessage("invalid X-User-ID header")
		}
	}
	return companyID, userID, nil
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrKBInvalidRequest.WithMessage("invalid document id")
	}
	return id, nil
}
