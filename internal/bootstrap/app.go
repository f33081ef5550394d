package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"slidecoach/internal/ai"
	appsvc "slidecoach/internal/app"
	"slidecoach/internal/cache"
	"slidecoach/internal/config"
	"slidecoach/internal/model"
	"slidecoach/internal/pipeline"
	mysqlClient "slidecoach/internal/platform/mysql"
	rabbitmqClient "slidecoach/internal/platform/rabbitmq"
	redisClient "slidecoach/internal/platform/redis"
	"slidecoach/internal/repository"
	"slidecoach/internal/store"
	"slidecoach/internal/worker"
)

type App struct {
	Config       *config.Config
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	Store        *store.Store
	Orchestrator *pipeline.Orchestrator
	Sessions     *appsvc.SessionService

	transcribeWorker *worker.TranscribeWorker
	dataLock         *flock.Flock

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	settings, err := pipeline.NewSettings(
		cfg.Pipeline.Language,
		cfg.Whisper.Model,
		cfg.Pipeline.SlideTipLimit,
		cfg.Pipeline.SummaryTipLimit,
		cfg.Pipeline.TranscriptClip,
		cfg.Pipeline.AttachReference,
	)
	if err != nil {
		return nil, fmt.Errorf("validate pipeline settings failed: %w", err)
	}

	if err := os.MkdirAll(cfg.Pipeline.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir failed: %w", err)
	}
	dataLock := flock.New(filepath.Join(cfg.Pipeline.DataDir, ".slidecoach.lock"))
	locked, err := dataLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data dir lock failed: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data dir %s is owned by another instance", cfg.Pipeline.DataDir)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.MySQL.MaxOpenConns)
	if err != nil {
		_ = dataLock.Unlock()
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Session{}); err != nil {
		_ = dataLock.Unlock()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		_ = dataLock.Unlock()
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		_ = dataLock.Unlock()
		return nil, err
	}

	artifactStore := store.New(cfg.Pipeline.DataDir)
	statusCache := cache.NewSessionStatusCache(
		redisCli,
		time.Duration(cfg.Redis.StatusTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.StatusDirtyTTLSeconds)*time.Second,
	)

	genCfg := ai.GenerateConfig{
		BaseURL: cfg.Gemini.BaseURL,
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
	}
	sttCfg := ai.TranscribeConfig{
		BaseURL: cfg.Whisper.BaseURL,
		APIKey:  cfg.Whisper.APIKey,
		Model:   cfg.Whisper.Model,
	}
	gemini := ai.NewGeminiClient()
	whisper := ai.NewWhisperClient()

	poll := pipeline.PollPolicy{
		Interval:    time.Duration(cfg.Pipeline.PollIntervalMS) * time.Millisecond,
		MaxAttempts: cfg.Pipeline.PollMaxAttempts,
	}
	transcripts := pipeline.NewTranscriptionStage(artifactStore, whisper, sttCfg, gemini, genCfg, settings.Language, poll)
	reviews := pipeline.NewReviewStage(artifactStore, transcripts, gemini, genCfg, settings.SlideTipLimit)
	summaries := pipeline.NewSummaryStage(artifactStore, gemini, genCfg, settings.SummaryTipLimit, settings.TranscriptClip)
	orchestrator := pipeline.NewOrchestrator(
		artifactStore,
		transcripts,
		reviews,
		summaries,
		gemini,
		genCfg,
		settings.AttachReference,
		statusCache,
	)

	sessionRepo := repository.NewSessionRepository(mysqlDB)

	var publisher appsvc.TranscribeJobPublisher
	var transcribeWorker *worker.TranscribeWorker
	if !cfg.Pipeline.DisableTranscription {
		publisher = rabbitmqClient.NewTranscribeJobPublisher(mqConn, cfg.RabbitMQ.TranscribeQueue)
		transcribeWorker = worker.NewTranscribeWorker(mqConn, orchestrator, cfg.RabbitMQ.TranscribeQueue)
		if err := transcribeWorker.Start(ctx); err != nil {
			_ = dataLock.Unlock()
			return nil, fmt.Errorf("start transcribe worker failed: %w", err)
		}
	}

	sessions := appsvc.NewSessionService(sessionRepo, artifactStore, publisher, orchestrator)

	return &App{
		Config:           cfg,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		Store:            artifactStore,
		Orchestrator:     orchestrator,
		Sessions:         sessions,
		transcribeWorker: transcribeWorker,
		dataLock:         dataLock,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.transcribeWorker != nil {
		a.transcribeWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.dataLock != nil {
		if err := a.dataLock.Unlock(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
