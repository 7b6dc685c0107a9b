package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ragchat/internal/ai"
	"ragchat/internal/app"
	"ragchat/internal/model"
	"ragchat/internal/repository"
	"ragchat/internal/transport/http/response"
	"ragchat/internal/vectorstore/memory"
)

type stubGenerator struct {
	answer string
}

func (s *stubGenerator) Complete(context.Context, []ai.ChatMessage) (string, error) {
	return s.answer, nil
}

func (s *stubGenerator) Stream(_ context.Context, _ []ai.ChatMessage, onChunk func(string) error) (string, error) {
	if s.answer == "" {
		return "", nil
	}
	if err := onChunk(s.answer); err != nil {
		return "", err
	}
	return s.answer, nil
}

type dropSink struct{}

func (dropSink) Append(context.Context, *model.AuditRecord) error { return nil }

func testRouter(t *testing.T, answer string) (*gin.Engine, *repository.SessionRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ChatSession{}, &model.ChatMessage{}, &model.AuditRecord{}))

	sessions := repository.NewSessionRepository(db)
	service := app.NewChatService(
		sessions,
		repository.NewMessageRepository(db),
		dropSink{},
		memory.New(),
		nil,
		&stubGenerator{answer: answer},
		nil,
		app.RetrievalConfig{},
		nil,
	)
	h := NewChatHandler(service)

	r := gin.New()
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id/messages", h.ListMessages)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.POST("/stream", h.StreamTurn)
	r.POST("/answer", h.Answer)
	return r, sessions
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateAndListSessions(t *testing.T) {
	r, _ := testRouter(t, "answer")

	w := doJSON(t, r, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, response.CodeOK, resp.Code)

	w = doJSON(t, r, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListMessages_InvalidAndUnknownID(t *testing.T) {
	r, _ := testRouter(t, "answer")

	w := doJSON(t, r, http.MethodGet, "/sessions/abc/messages", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, decode(t, w).Code)

	w = doJSON(t, r, http.MethodGet, "/sessions/999/messages", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeSessionNotFound, decode(t, w).Code)
}

func TestDeleteSession(t *testing.T) {
	r, sessions := testRouter(t, "answer")
	_, err := sessions.Create(context.Background())
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, "/sessions/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/sessions/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamTurn_BadPayload(t *testing.T) {
	r, _ := testRouter(t, "answer")

	w := doJSON(t, r, http.MethodPost, "/stream", `{"query":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamTurn_UnknownSessionIsPlainError(t *testing.T) {
	r, _ := testRouter(t, "answer")

	w := doJSON(t, r, http.MethodPost, "/stream", `{"session_id":999,"query":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeSessionNotFound, decode(t, w).Code)
}

func TestStreamTurn_StreamsChunksAndDoneEvent(t *testing.T) {
	r, sessions := testRouter(t, "streamed reply")
	_, err := sessions.Create(context.Background())
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/stream", `{"session_id":1,"query":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "data: streamed reply\n\n")
	assert.Contains(t, body, "event: done\n")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

// decodeSSEEvent reassembles the payload of one SSE event the way a client
// does: strip each "data: " prefix and rejoin the data lines with "\n".
func decodeSSEEvent(t *testing.T, event string) string {
	t.Helper()
	var lines []string
	for _, line := range strings.Split(event, "\n") {
		if strings.HasPrefix(line, "data: ") {
			lines = append(lines, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NotEmpty(t, lines)
	return strings.Join(lines, "\n")
}

func TestStreamTurn_MultiLineChunkSurvivesTransport(t *testing.T) {
	r, sessions := testRouter(t, "first line\nsecond line")
	_, err := sessions.Create(context.Background())
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/stream", `{"session_id":1,"query":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	events := strings.Split(w.Body.String(), "\n\n")
	require.GreaterOrEqual(t, len(events), 1)
	assert.Equal(t, "first line\nsecond line", decodeSSEEvent(t, events[0]))
}

func TestStreamTurn_EmptyGenerationIsBadGateway(t *testing.T) {
	r, sessions := testRouter(t, "")
	_, err := sessions.Create(context.Background())
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/stream", `{"session_id":1,"query":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, response.CodeUpstreamUnavailable, decode(t, w).Code)
}

func TestAnswer(t *testing.T) {
	r, _ := testRouter(t, "forty two")

	w := doJSON(t, r, http.MethodPost, "/answer", `{"query":"meaning of life"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, response.CodeOK, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "forty two", data["answer"])
}

func TestAnswer_BadPayload(t *testing.T) {
	r, _ := testRouter(t, "x")

	w := doJSON(t, r, http.MethodPost, "/answer", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
