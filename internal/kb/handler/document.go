package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-x/internal/pkg/httputils"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// 上传文件大小上限：50MB。
const maxUploadSize = 50 << 20

// UploadDocument handles POST /v1/documents/upload (multipart form, field "file").
func (h *Handler) UploadDocument(c *gin.Context) {
	companyID, userID, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httputils.WriteResponse(c, errors.ErrKBInvalidRequest.WithMessage("missing file field"), nil)
		return
	}
	if fileHeader.Size > maxUploadSize {
		httputils.WriteResponse(c, errors.ErrKBInvalidRequest.WithMessage("file too large"), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInternal.WithCause(err), nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInternal.WithCause(err), nil)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	doc, err := h.biz.Documents().Upload(c.Request.Context(), companyID, userID, fileHeader.Filename, mimeType, content)
	httputils.WriteResponse(c, err, doc)
}

// GetDocument handles GET /v1/documents/:id.
func (h *Handler) GetDocument(c *gin.Context) {
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

	doc, err := h.biz.Documents().Get(c.Request.Context(), companyID, id)
	httputils.WriteResponse(c, err, doc)
}

// ListDocuments handles GET /v1/documents?offset=&limit=.
func (h *Handler) ListDocuments(c *gin.Context) {
	companyID, _, err := identity(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.biz.Documents().List(c.Request.Context(), companyID, offset, limit)
	httputils.WriteResponse(c, err, result)
}

// DeleteDocument handles DELETE /v1/documents/:id.
func (h *Handler) DeleteDocument(c *gin.Context) {
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

	err = h.biz.Documents().Delete(c.Request.Context(), companyID, id)
	httputils.WriteResponse(c, err, gin.H{"deleted": err == nil})
}
