package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"ragchat/internal/ai"
	"ragchat/internal/app"
	"ragchat/internal/bootstrap"
	"ragchat/internal/cache"
	"ragchat/internal/platform/rabbitmq"
	"ragchat/internal/rerank"
	"ragchat/internal/repository"
	"ragchat/internal/transport/http/handler"
)

// NewRouter assembles repositories, services and handlers on top of the
// shared resources in boot, then binds them onto a gin engine.
func NewRouter(boot *bootstrap.App) *gin.Engine {
	cfg := boot.Config
	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}

	sessionRepo := repository.NewSessionRepository(boot.ChatDB)
	messageRepo := repository.NewMessageRepository(boot.ChatDB)

	transcriptCache := cache.NewTranscriptCache(
		boot.Redis,
		time.Duration(cfg.Redis.TranscriptTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.TranscriptDirtyTTLSeconds)*time.Second,
	)

	generator := ai.NewGenerator(boot.AIClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	reranker := rerank.New(generator)
	auditSink := rabbitmq.NewAuditPublisher(boot.MQConn, cfg.RabbitMQ.AuditPersistQueue)

	chatService := app.NewChatService(
		sessionRepo,
		messageRepo,
		auditSink,
		boot.VectorStore,
		reranker,
		generator,
		transcriptCache,
		app.RetrievalConfig{
			RetrieveK: cfg.Retrieval.RetrieveK,
			TopN:      cfg.Retrieval.TopN,
			Rerank:    cfg.Retrieval.Rerank,
		},
		boot.Logger.With("component", "chat_service"),
	)
	knowledgeService := app.NewKnowledgeService(boot.VectorStore, boot.Logger.With("component", "knowledge_service"))

	chatHandler := handler.NewChatHandler(chatService)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
	healthHandler := handler.NewHealthHandler(boot)

	r := gin.Default()
	r.GET("/healthz", healthHandler.Check)

	v1 := r.Group("/api/v1")
	{
		chat := v1.Group("/chat")
		{
			chat.POST("/sessions", chatHandler.CreateSession)
			chat.GET("/sessions", chatHandler.ListSessions)
			chat.GET("/sessions/:id/messages", chatHandler.ListMessages)
			chat.DELETE("/sessions/:id", chatHandler.DeleteSession)
			chat.POST("/stream", chatHandler.StreamTurn)
			chat.POST("/answer", chatHandler.Answer)
		}

		knowledge := v1.Group("/knowledge")
		{
			knowledge.POST("/documents", knowledgeHandler.Ingest)
			knowledge.GET("/documents", knowledgeHandler.ListDocuments)
			knowledge.PUT("/documents", knowledgeHandler.UpdateDocuments)
			knowledge.DELETE("/documents/:id", knowledgeHandler.DeleteDocument)
			knowledge.DELETE("/documents", knowledgeHandler.Wipe)
		}
	}

	return r
}
