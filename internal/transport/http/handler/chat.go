package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/rerank"
	"ragchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type StreamTurnRequest struct {
	SessionID uint   `json:"session_id" binding:"required,gt=0"`
	Query     string `json:"query" binding:"required"`
	TopK      int    `json:"top_k" binding:"omitempty,gte=1,lte=20"`
}

type AnswerRequest struct {
	Query string `json:"query" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	session, err := h.chatService.CreateSession(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		return
	}
	response.OK(c, gin.H{"session_id": session.ID, "created_at": session.CreatedAt})
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chatService.ListSessions(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list sessions failed")
		return
	}
	response.OK(c, gin.H{"sessions": sessions})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil || sessionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	messages, err := h.chatService.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list messages failed")
		}
		return
	}
	response.OK(c, gin.H{"messages": messages})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil || sessionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	if err := h.chatService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete session failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

// StreamTurn runs a chat turn over SSE. Failures before the first chunk map
// to a plain error response; failures mid-stream arrive as an error event.
func (h *ChatHandler) StreamTurn(c *gin.Context) {
	var req StreamTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	streaming := false
	startStream := func() {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		streaming = true
	}

	result, err := h.chatService.StreamTurn(
		c.Request.Context(),
		req.SessionID,
		req.Query,
		req.TopK,
		func(chunk string) error {
			if !streaming {
				startStream()
			}
			if writeErr := writeSSEData(c.Writer, chunk); writeErr != nil {
				return writeErr
			}
			flusher.Flush()
			return nil
		},
	)
	if err != nil {
		if streaming {
			if _, writeErr := io.WriteString(c.Writer, "event: error\n"); writeErr == nil {
				if writeErr := writeSSEData(c.Writer, err.Error()); writeErr == nil {
					flusher.Flush()
				}
			}
			return
		}
		var parseErr *rerank.ParseError
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmptyGeneration), errors.As(err, &parseErr):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamUnavailable, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat turn failed")
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: done\ndata: latency_ms=%d\n\n", result.LatencyMS))); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.chatService.Answer(c.Request.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmptyGeneration):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamUnavailable, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "answer failed")
		}
		return
	}
	response.OK(c, gin.H{"answer": answer})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(raw), nil
}

// writeSSEData emits one SSE event carrying payload verbatim: one data line
// per payload line, so clients rejoining data lines with "\n" reconstruct the
// exact text that was persisted.
func writeSSEData(w io.Writer, payload string) error {
	for _, line := range strings.Split(payload, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}
