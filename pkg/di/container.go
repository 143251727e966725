package di

import (
	"context"
	"fmt"
	"time"

	"newsflow/backend/ai"
	"newsflow/backend/internal/repository"
	"newsflow/backend/internal/service"
	"newsflow/backend/pkg/cache"
	"newsflow/backend/pkg/config"
	"newsflow/backend/pkg/health"
	"newsflow/backend/pkg/logger"
	sharedredis "newsflow/backend/shared/redis"

	"gorm.io/gorm"
)

// listingKeyPrefix namespaces the listing snapshot in a shared redis
const listingKeyPrefix = "newsflow:"

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Logger         *logger.Logger
	Config         *config.Config
	Repository     *repository.GormStoryRepository
	Cache          cache.Store
	Responder      *ai.Responder
	StoryService   *service.StoryService
	MessageService *service.MessageService
	UploadService  *service.UploadService
	Health         *health.Checker

	closers []func() error
}

// New wires the services around an open database. The AI key is passed
// separately since it may come from a secrets manager rather than cfg.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger, aiAPIKey string) (*Container, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if cfg == nil {
		cfg = config.Load()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	c := &Container{DB: db, Logger: log, Config: cfg}

	c.Repository = repository.NewGormStoryRepository(db)
	c.Cache = c.newCacheStore()

	c.Responder = ai.NewResponder(aiAPIKey, ai.Config{
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
		BaseURL:     cfg.AI.BaseURL,
	}, log)
	if !c.Responder.Configured() {
		log.Warn("OPENAI_API_KEY not set, @ai mentions get a placeholder reply")
	}

	c.UploadService = service.NewUploadService(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes, c.Repository, log)
	c.StoryService = service.NewStoryService(c.Repository, c.Cache, c.UploadService, log)
	c.MessageService = service.NewMessageService(c.Repository, c.Responder, c.UploadService, c.Cache, log)

	c.Health = health.NewChecker(log, 30*time.Second)
	c.Health.RegisterDatabaseCheck(c.Repository.Ping)
	if c.Cache != nil {
		c.Health.RegisterCacheCheck(c.Cache.Ping)
	}

	return c, nil
}

func (c *Container) newCacheStore() cache.Store {
	if !c.Config.Cache.Enabled {
		return nil
	}

	switch c.Config.Cache.Backend {
	case "redis":
		client := sharedredis.NewRedisClient(sharedredis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		c.closers = append(c.closers, client.Close)
		c.Logger.Info("Using redis listing cache", "addr", c.Config.Redis.Addr)
		return cache.NewRedisStore(client, listingKeyPrefix, c.Config.Cache.TTL)
	default:
		mem := cache.NewCache(c.Config.Cache.TTL, c.Config.Cache.PurgeWindow, c.Config.Cache.MaxSize)
		c.closers = append(c.closers, func() error {
			mem.Close()
			return nil
		})
		return mem
	}
}

// StartHealth runs the periodic health checks until ctx is done
func (c *Container) StartHealth(ctx context.Context) {
	c.Health.Start(ctx)
}

// Close releases the cache backends. The database is owned by the caller.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
