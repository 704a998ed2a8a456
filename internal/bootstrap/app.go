package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"copium-tutor/internal/app"
	"copium-tutor/internal/backboard"
	"copium-tutor/internal/cache"
	"copium-tutor/internal/config"
	"copium-tutor/internal/logging"
	"copium-tutor/internal/platform/database"
	rabbitmqClient "copium-tutor/internal/platform/rabbitmq"
	redisClient "copium-tutor/internal/platform/redis"
	"copium-tutor/internal/repository"
	"copium-tutor/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Pool              *worker.Pool
	GenerationWorker  *worker.GenerationWorker
	ChatPersistWorker *worker.ChatPersistWorker

	IngestService *app.IngestService
	QuizService   *app.QuizService
	DeckService   *app.DeckService
	ChatService   *app.ChatService

	StartedAt time.Time
}

// New loads configuration and wires storage, queueing and services. Redis
// and RabbitMQ are optional. Without Redis the ingest lock is process local.
// Without RabbitMQ generation jobs go straight to the in-process pool and
// chat messages are stored in place.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(cfg.Log)

	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}

	var locker app.ProjectLocker
	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = redisCli
		locker = cache.NewProjectLock(redisCli, cfg.LockTTL())
	} else {
		a.Logger.Warn("redis not configured, ingestion lock is process local only")
		locker = cache.NewLocalLock()
	}

	client := backboard.NewClient(cfg.Backboard)
	if !client.Configured() {
		a.Logger.Warn("BACKBOARD_API_KEY not set, ingestion and generation will fail")
	}
	message := backboard.MessageOptions{
		LLMProvider: cfg.Backboard.LLMProvider,
		ModelName:   cfg.Backboard.ModelName,
		Memory:      backboard.MemoryAuto,
	}
	sessions := app.NewMemorySessionManager(client, a.Logger)

	engine := app.NewGenerationEngine(db, client, sessions, app.EngineOptions{
		ReadyTimeout: cfg.ReadyTimeout(),
		PollInterval: cfg.PollInterval(),
		Message:      message,
	}, a.Logger)

	pool, err := worker.NewPool(cfg.Generation.Workers, engine, a.Logger)
	if err != nil {
		return err
	}
	a.Pool = pool

	var dispatcher app.Dispatcher = pool
	var chatSink app.MessageSink
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ)
		if err != nil {
			return err
		}
		a.MQConn = conn
		dispatcher = rabbitmqClient.NewJobPublisher(conn, cfg.RabbitMQ.GenerationQueue)

		a.GenerationWorker = worker.NewGenerationWorker(conn, pool, cfg.RabbitMQ.GenerationQueue, cfg.Generation.Workers, a.Logger)
		if err := a.GenerationWorker.Start(ctx); err != nil {
			return fmt.Errorf("start generation worker failed: %w", err)
		}

		chatSink = rabbitmqClient.NewChatMessagePublisher(conn, cfg.RabbitMQ.ChatQueue)
		a.ChatPersistWorker = worker.NewChatPersistWorker(conn, repository.NewChatMessageRepository(db), cfg.RabbitMQ.ChatQueue, a.Logger)
		if err := a.ChatPersistWorker.Start(ctx); err != nil {
			return fmt.Errorf("start chat persist worker failed: %w", err)
		}
	}

	a.IngestService = app.NewIngestService(db, client, sessions, locker, cfg.Ingest, a.Logger)
	a.QuizService = app.NewQuizService(
		repository.NewProjectRepository(db),
		repository.NewFileRepository(db),
		repository.NewQuizRepository(db),
		repository.NewAttemptRepository(db),
		dispatcher,
		cfg.Generation.MaxQuestions,
		a.Logger,
	)
	a.DeckService = app.NewDeckService(db, client, sessions, message, a.Logger)
	a.ChatService = app.NewChatService(db, client, sessions, chatSink, message, a.Logger)

	// The broker redelivers interrupted jobs; the pool has only the table.
	if a.MQConn == nil {
		if _, err := a.QuizService.ResumeUnfinished(ctx); err != nil {
			return err
		}
	}

	a.Logger.Info("application wired",
		"database", cfg.Database.Driver,
		"redis", a.Redis != nil,
		"rabbitmq", a.MQConn != nil,
		"workers", cfg.Generation.Workers,
	)
	return nil
}

// Close stops consumers first so that running jobs can settle before the
// connections they write through go away.
func (a *App) Close() error {
	var closeErr error
	if a.GenerationWorker != nil {
		a.GenerationWorker.Close()
	}
	if a.ChatPersistWorker != nil {
		a.ChatPersistWorker.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
