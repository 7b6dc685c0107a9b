package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/ingest"
	"ragchat/internal/transport/http/response"
	"ragchat/internal/vectorstore"
)

type KnowledgeHandler struct {
	knowledgeService *app.KnowledgeService
}

// IngestRequest names a file already on the server; upload transport is
// handled ahead of this API.
type IngestRequest struct {
	Path string `json:"path" binding:"required"`
}

type UpdateDocumentsRequest struct {
	Documents []app.DocumentUpdate `json:"documents" binding:"required,min=1,dive"`
}

func NewKnowledgeHandler(knowledgeService *app.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService}
}

func (h *KnowledgeHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	metas, err := h.knowledgeService.Ingest(c.Request.Context(), req.Path)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedFormat), errors.Is(err, ingest.ErrEmptyDocument):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
		}
		return
	}
	response.OK(c, gin.H{"documents": metas})
}

func (h *KnowledgeHandler) UpdateDocuments(c *gin.Context) {
	var req UpdateDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.knowledgeService.UpdateDocuments(c.Request.Context(), req.Documents); err != nil {
		switch {
		case errors.Is(err, vectorstore.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		case errors.Is(err, vectorstore.ErrEmptyContent), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update documents failed")
		}
		return
	}
	response.OK(c, gin.H{"updated": len(req.Documents)})
}

func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.knowledgeService.DeleteDocument(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	metas, err := h.knowledgeService.ListDocuments(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": metas})
}

func (h *KnowledgeHandler) Wipe(c *gin.Context) {
	removed, err := h.knowledgeService.Wipe(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "wipe failed")
		return
	}
	response.OK(c, gin.H{"removed": removed})
}
