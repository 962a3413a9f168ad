package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"knowledge-assistant/internal/access"
	"knowledge-assistant/internal/ai"
	"knowledge-assistant/internal/app"
	"knowledge-assistant/internal/audit"
	"knowledge-assistant/internal/cache"
	"knowledge-assistant/internal/chunker"
	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/index"
	"knowledge-assistant/internal/loader"
	"knowledge-assistant/internal/model"
	mysqlClient "knowledge-assistant/internal/platform/mysql"
	rabbitmqClient "knowledge-assistant/internal/platform/rabbitmq"
	redisClient "knowledge-assistant/internal/platform/redis"
	"knowledge-assistant/internal/repository"
	"knowledge-assistant/internal/transport/http/handler"
	"knowledge-assistant/internal/worker"
)

type App struct {
	Config *config.Config

	Index    *index.Manager
	Provider *ai.Provider
	Ingest   *app.IngestService
	Pipeline *app.Pipeline
	Ask      *app.AskService
	Loader   *loader.Loader
	Recorder *audit.Recorder

	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Publisher   *rabbitmqClient.QueryLogPublisher
	AuditWorker *worker.AuditPersistWorker

	StartedAt time.Time
}

// SetupLogging installs a text slog handler at level as the default logger.
func SetupLogging(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// New wires every component from cfg. Optional backends are connected
// only when enabled, and an enabled backend that cannot be reached fails
// start-up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	provider, err := ai.NewProvider(ai.Config{
		Provider:       cfg.LLM.Provider,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("create llm provider failed: %w", err)
	}
	a.Provider = provider

	store, err := index.NewStore(cfg.Index.Store, cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("open index store failed: %w", err)
	}
	a.Index, err = index.Open(ctx, store, provider.Embedder.Model())
	if err != nil {
		_ = store.Close()
		return err
	}

	if err := a.connectBackends(ctx); err != nil {
		return err
	}
	a.Recorder = a.buildRecorder()

	var answers app.AnswerCache
	ingestOpts := []app.IngestOption{
		app.WithBatchSize(cfg.Ingest.BatchSize),
		app.WithPoolSize(cfg.Ingest.PoolSize),
		app.WithClassifier(access.FilenameClassifier{}),
	}
	if a.Redis != nil {
		redisAnswers := cache.NewAnswerCache(a.Redis, time.Duration(cfg.Redis.AnswerTTLSeconds)*time.Second)
		answers = redisAnswers
		ingestOpts = append(ingestOpts, app.WithInvalidator(redisAnswers))
	}

	chk, err := chunker.New(cfg.Ingest.Chunker, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return err
	}
	a.Ingest, err = app.NewIngestService(a.Index, provider.Embedder, chk, ingestOpts...)
	if err != nil {
		return err
	}

	a.Pipeline = app.NewPipeline(a.Index, provider.Embedder, provider.Generator, app.PipelineConfig{
		TopK:       cfg.Retrieval.TopK,
		Similarity: cfg.Retrieval.Similarity,
		Prefilter:  cfg.Retrieval.Prefilter,
	})
	a.Ask = app.NewAskService(a.Pipeline, a.Recorder, answers)
	a.Loader = loader.New(access.FilenameClassifier{})
	return nil
}

func (a *App) connectBackends(ctx context.Context) error {
	cfg := a.Config
	var err error

	if cfg.MySQL.Enabled {
		a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN(), &model.QueryLog{})
		if err != nil {
			return err
		}
	}
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
	}
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.AuditQueue)
		if err != nil {
			return err
		}
		a.Publisher = rabbitmqClient.NewQueryLogPublisher(a.MQConn, cfg.RabbitMQ.AuditQueue)

		if a.MySQL != nil {
			a.AuditWorker = worker.NewAuditPersistWorker(a.MQConn, repository.NewQueryLogRepository(a.MySQL), cfg.RabbitMQ.AuditQueue)
			if err := a.AuditWorker.Start(ctx); err != nil {
				return fmt.Errorf("start audit worker failed: %w", err)
			}
		}
	}
	return nil
}

// buildRecorder always writes the CSV trail. Rows are mirrored through the
// broker when it is enabled, or straight into MySQL otherwise.
func (a *App) buildRecorder() *audit.Recorder {
	rec := audit.NewRecorder(audit.NewCSVSink(a.Config.Audit.CSVPath))
	switch {
	case a.Publisher != nil:
		rec.Add(audit.SinkFunc(a.Publisher.Publish))
	case a.MySQL != nil:
		rec.Add(repository.NewQueryLogRepository(a.MySQL))
	}
	return rec
}

// IngestDocument adapts the ingest service to loader.IngestFunc.
func (a *App) IngestDocument(ctx context.Context, doc model.Document) error {
	_, err := a.Ingest.Ingest(ctx, doc.Metadata.Source, doc.Content)
	return err
}

// DependencyChecks returns a ping per optional backend; disabled ones map
// to nil.
func (a *App) DependencyChecks() map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"mysql":    nil,
		"redis":    nil,
		"rabbitmq": nil,
	}
	if a.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error { return mysqlClient.Ping(ctx, a.MySQL) }
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx, a.Redis) }
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

func (a *App) Close() error {
	var errs []error
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.MQConn != nil {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.MySQL != nil {
		errs = append(errs, mysqlClient.Close(a.MySQL))
	}
	if a.Ingest != nil {
		a.Ingest.Release()
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	return errors.Join(errs...)
}
