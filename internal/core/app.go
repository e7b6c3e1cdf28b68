package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"icmm/internal/cache"
	"icmm/internal/llm"
	"icmm/internal/llm/tasks"
	"icmm/internal/maturity"
	"icmm/internal/metrics"
	"icmm/internal/repository"
)

// App is the wired application, built once at startup and passed by reference.
type App struct {
	Config      *Config
	Logger      Logger
	Model       *maturity.Model
	Store       *repository.LiveStore
	Cache       *cache.RedisCache // nil when REDIS_ADDR is unset or unreachable
	LLM         *llm.Client
	Recommender *tasks.Recommender
	Assessor    *Assessor
}

// Bootstrap loads the model, opens the store and cache, and registers the recommendation flow.
// owner identifies the process in file store locks ("server" or "cli").
func Bootstrap(ctx context.Context, cfg *Config, logger Logger, owner string) (*App, error) {
	model, err := loadModel(cfg.ModelFile)
	if err != nil {
		return nil, &ConfigError{Key: "MODEL_FILE", Message: "invalid questionnaire", Err: err}
	}

	store, err := OpenStore(cfg, owner)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Model:  model,
		Store:  repository.NewLive(store),
	}

	var recCache tasks.Cache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.Config{Addr: cfg.RedisAddr, TTL: cfg.RedisTTL})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("Redis unreachable, recommendation cache disabled", "addr", cfg.RedisAddr, "error", err)
			_ = rc.Close()
		} else {
			app.Cache = rc
			recCache = rc
		}
	}

	client, err := llm.NewClient(ctx, cfg.LLMConfig())
	if err != nil {
		_ = app.Close()
		return nil, &ConfigError{Message: "model client", Err: err}
	}
	app.LLM = client

	retrier := llm.NewRetrier(cfg.Retry)
	retrier.OnRetry = func(ev llm.RetryEvent) {
		metrics.RecommendationRetries.WithLabelValues(strconv.Itoa(ev.Attempt + 1)).Inc()
	}
	app.Recommender = tasks.NewRecommender(client.Genkit(), client, retrier, recCache)

	app.Assessor = NewAssessor(model, app.Store, app.Recommender, logger, AssessorOptions{
		Collection:  cfg.Collection,
		BucketWidth: cfg.BucketWidth,
		RecentLimit: cfg.RecentLimit,
	})

	logger.Info("Application ready",
		"model", model.Version,
		"questions", len(model.Questions),
		"store", cfg.StoreDriver,
		"cache", app.Cache != nil,
		"llm_model", cfg.DefaultModel,
	)
	return app, nil
}

// OpenStore opens the store selected by cfg.StoreDriver.
func OpenStore(cfg *Config, owner string) (repository.Store, error) {
	var (
		store repository.Store
		err   error
	)
	switch cfg.StoreDriver {
	case StoreMemory, "":
		store = repository.NewMemoryStore()
	case StoreSQLite:
		store, err = repository.OpenSQLite(cfg.DataDir)
	case StorePostgres:
		store, err = repository.OpenPostgres(cfg.DatabaseURL)
	case StoreFile:
		store, err = repository.NewFileStore(cfg.DataDir, owner)
	default:
		return nil, &ConfigError{Key: "STORE_DRIVER", Message: fmt.Sprintf("unknown driver %q", cfg.StoreDriver)}
	}
	if err != nil {
		return nil, &PersistenceError{Operation: "open", Collection: cfg.Collection, Err: err}
	}
	return store, nil
}

func loadModel(path string) (*maturity.Model, error) {
	if path == "" {
		return maturity.Default(), nil
	}
	return maturity.Load(path)
}

// Close releases the store and cache.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	return errors.Join(errs...)
}
