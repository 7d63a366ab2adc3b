package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-x/internal/kb/biz"
	"github.com/kart-io/knowledge-x/internal/pkg/httputils"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// Search handles POST /v1/search.
func (h *Handler) Search(c *gin.Context) {
	companyID, userID, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var req biz.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrKBInvalidRequest.WithCause(err), nil)
		return
	}

	result, err := h.biz.Search().Search(c.Request.Context(), companyID, userID, &req)
	httputils.WriteResponse(c, err, result)
}

// SearchHistory handles GET /v1/search/history?limit=.
func (h *Handler) SearchHistory(c *gin.Context) {
	companyID, userID, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.biz.Search().History(c.Request.Context(), companyID, userID, limit)
	httputils.WriteResponse(c, err, items)
}

// SearchFilters handles GET /v1/search/filters.
func (h *Handler) SearchFilters(c *gin.Context) {
	companyID, _, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	result, err := h.biz.Search().Filters(c.Request.Context(), companyID)
	httputils.WriteResponse(c, err, result)
}
