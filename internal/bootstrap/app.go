package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ragchat/internal/ai"
	"ragchat/internal/config"
	"ragchat/internal/model"
	mysqlClient "ragchat/internal/platform/mysql"
	postgresClient "ragchat/internal/platform/postgres"
	rabbitmqClient "ragchat/internal/platform/rabbitmq"
	redisClient "ragchat/internal/platform/redis"
	"ragchat/internal/repository"
	"ragchat/internal/vectorstore/pgvector"
	"ragchat/internal/worker"
)

// App holds every long-lived resource: one connection each to the chat
// database, the vector database, Redis and RabbitMQ, reused across turns.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	ChatDB      *gorm.DB
	VectorDB    *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	AIClient    *ai.Client
	VectorStore *pgvector.Store
	AuditWorker *worker.AuditPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	chatDB, err := mysqlClient.New(ctx, cfg.ChatDBDSN())
	if err != nil {
		return nil, err
	}
	if err := chatDB.AutoMigrate(&model.ChatSession{}, &model.ChatMessage{}, &model.AuditRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate chat tables failed: %w", err)
	}

	vectorDB, err := postgresClient.New(ctx, cfg.VectorDBDSN())
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient()
	embedder := ai.NewEmbedder(aiClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	vectorStore := pgvector.New(vectorDB, embedder, cfg.LLM.EmbeddingDimension)
	if err := vectorStore.Migrate(ctx); err != nil {
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	auditRepo := repository.NewAuditRepository(chatDB)
	auditWorker := worker.NewAuditPersistWorker(mqConn, auditRepo, cfg.RabbitMQ.AuditPersistQueue, logger.With("component", "audit_worker"))
	if err := auditWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start audit worker failed: %w", err)
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		ChatDB:      chatDB,
		VectorDB:    vectorDB,
		Redis:       redisCli,
		MQConn:      mqConn,
		AIClient:    aiClient,
		VectorStore: vectorStore,
		AuditWorker: auditWorker,
		StartedAt:   time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	for _, db := range []*gorm.DB{a.ChatDB, a.VectorDB} {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
