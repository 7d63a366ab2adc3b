package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-x/internal/pkg/httputils"
)

// ProcessDocument handles POST /v1/processing/process/:id.
// Processing runs in the background; the response acknowledges enqueueing.
func (h *Handler) ProcessDocument(c *gin.Context) {
	companyID, _, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	id, err := pathID(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	result, err := h.biz.Processor().Enqueue(c.Request.Context(), companyID, id)
	httputils.WriteResponse(c, err, result)
}

// ProcessAll handles POST /v1/processing/process-all.
func (h *Handler) ProcessAll(c *gin.Context) {
	companyID, _, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	result, err := h.biz.Processor().EnqueueAll(c.Request.Context(), companyID)
	httputils.WriteResponse(c, err, result)
}

// ProcessingStatus handles GET /v1/processing/status/:id.
func (h *Handler) ProcessingStatus(c *gin.Context) {
	companyID, _, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	id, err := pathID(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	result, err := h.biz.Processor().Status(c.Request.Context(), companyID, id)
	httputils.WriteResponse(c, err, result)
}
