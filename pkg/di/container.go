package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"voice-dialogue-demo/backend/ai"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/cache"
	"voice-dialogue-demo/backend/pkg/config"
	"voice-dialogue-demo/backend/pkg/health"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"
	"voice-dialogue-demo/backend/pkg/resilience"
	"voice-dialogue-demo/backend/pkg/secrets"
	"voice-dialogue-demo/backend/pkg/storage"
	"voice-dialogue-demo/backend/shared/redis"

	"gorm.io/gorm"
)

const (
	healthCheckPeriod = 30 * time.Second
	cacheMaxItems     = 10000
)

// Container holds all the dependencies for the application
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *logger.Logger

	JWTService *jwt.Service
	Secrets    secrets.Manager
	Cache      cache.Store
	Blobs      storage.BlobStore
	// MediaRoot is set when blobs live on the local filesystem.
	MediaRoot string
	Health    *health.Checker
	Breakers  []*resilience.CircuitBreaker

	UserService        *service.UserService
	AvatarService      *service.AvatarService
	MoodService        *service.MoodService
	TurnService        *service.TurnService
	ChatHistoryService *service.ChatHistoryService
	ReplyService       *service.ReplyService
	AnalysisService    *service.AnalysisService

	closers []func() error
}

// New wires the application around an open, migrated database.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config:     cfg,
		DB:         db,
		Logger:     log,
		JWTService: jwt.NewService(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.ExpiryHours, cfg.JWT.RefreshExpiry),
		Health:     health.NewChecker(log, healthCheckPeriod),
	}

	c.Health.RegisterPing("database", true, func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	if err := c.initSecrets(); err != nil {
		c.Close()
		return nil, err
	}
	c.initCache()
	if err := c.initBlobs(ctx); err != nil {
		c.Close()
		return nil, err
	}

	generator, primary, fallback := c.initProviders(ctx)

	c.UserService = service.NewUserService(db, c.JWTService, log)
	c.AvatarService = service.NewAvatarService(db, c.Cache, cfg.Cache.TTL, c.Blobs, log)
	c.MoodService = service.NewMoodService(db, c.Cache, cfg.Cache.TTL, log)
	c.TurnService = service.NewTurnService(db, log)
	c.ChatHistoryService = service.NewChatHistoryService(db, log)
	c.AnalysisService = service.NewAnalysisService(generator, log)
	c.ReplyService = service.NewReplyService(service.ReplyDeps{
		Voices:      c.AvatarService,
		Moods:       c.MoodService,
		Turns:       c.TurnService,
		Generator:   generator,
		Primary:     primary,
		Fallback:    fallback,
		Blobs:       c.Blobs,
		DefaultMode: cfg.Dialogue.DefaultMode,
	}, log)

	return c, nil
}

func (c *Container) initSecrets() error {
	if !c.Config.Vault.Enabled {
		c.Secrets = secrets.NewEnvManager()
		return nil
	}

	vm, err := secrets.NewVaultManager(secrets.VaultConfig{
		Address:    c.Config.Vault.Addr,
		Token:      c.Config.Vault.Token,
		MountPath:  c.Config.Vault.MountPath,
		SecretPath: c.Config.Vault.SecretPath,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create vault secret manager: %w", err)
	}
	c.Secrets = vm
	return nil
}

func (c *Container) initCache() {
	if !c.Config.Cache.Enabled {
		c.Cache = cache.Noop{}
		return
	}

	if c.Config.Cache.Backend == "redis" {
		client := redis.NewRedisClient(redis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		}, "voice-dialogue:")
		c.Cache = client
		c.Health.RegisterPing("redis", false, client.Ping)
		c.closers = append(c.closers, client.Close)
		return
	}

	mem := cache.New(c.Config.Cache.PurgeWindow, cacheMaxItems)
	c.Cache = mem
	c.closers = append(c.closers, func() error { mem.Close(); return nil })
}

func (c *Container) initBlobs(ctx context.Context) error {
	switch c.Config.Storage.Backend {
	case "gcs":
		store, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			Bucket:          c.Config.Storage.GCSBucket,
			CredentialsFile: c.Config.Storage.GCSCredsFile,
			PublicBaseURL:   c.Config.Storage.GCSPublicURL,
		})
		if err != nil {
			return err
		}
		c.Blobs = store
		c.closers = append(c.closers, store.Close)
	case "nats":
		store, err := storage.NewNATSStore(c.Config.Storage.NATSURL, c.Config.Storage.NATSBucket, c.Config.Storage.PublicBaseURL)
		if err != nil {
			return err
		}
		c.Blobs = store
		c.Health.RegisterPing("nats", false, store.Ping)
		c.closers = append(c.closers, store.Close)
	case "local", "":
		store, err := storage.NewLocalStore(c.Config.Storage.LocalRoot, c.Config.Storage.PublicBaseURL)
		if err != nil {
			return err
		}
		c.Blobs = store
		c.MediaRoot = store.Root()
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Config.Storage.Backend)
	}
	return nil
}

// initProviders builds the upstream clients once, each behind its own breaker.
func (c *Container) initProviders(ctx context.Context) (ai.TextGenerator, ai.Synthesizer, ai.Synthesizer) {
	p := c.Config.Providers
	openAIKey := secrets.Resolve(ctx, c.Secrets, "openai-api-key", p.OpenAI.APIKey, c.Logger)
	elevenLabsKey := secrets.Resolve(ctx, c.Secrets, "elevenlabs-api-key", p.ElevenLabs.APIKey, c.Logger)
	if openAIKey == "" {
		c.Logger.Warn("OpenAI API key is not configured, reply generation is disabled")
	}
	if elevenLabsKey == "" {
		c.Logger.Warn("ElevenLabs API key is not configured, speech uses the fallback provider")
	}

	httpClient := &http.Client{}

	generator := ai.NewGuardedGenerator("openai", ai.NewOpenAIGenerator(ai.OpenAIConfig{
		APIKey:  openAIKey,
		BaseURL: p.OpenAI.BaseURL,
		Model:   p.OpenAI.Model,
		Timeout: p.OpenAI.Timeout,
	}), c.breaker("openai"))

	primary := ai.NewGuardedSynthesizer("elevenlabs", ai.NewElevenLabsSynthesizer(ai.ElevenLabsConfig{
		APIKey:          elevenLabsKey,
		BaseURL:         p.ElevenLabs.BaseURL,
		ModelID:         p.ElevenLabs.ModelID,
		Stability:       p.ElevenLabs.Stability,
		SimilarityBoost: p.ElevenLabs.SimilarityBoost,
		Timeout:         p.ElevenLabs.Timeout,
	}, httpClient), c.breaker("elevenlabs"))

	fallback := ai.NewGuardedSynthesizer("translate-tts", ai.NewTranslateSynthesizer(ai.TranslateTTSConfig{
		BaseURL:  p.Fallback.BaseURL,
		Language: p.Fallback.Language,
		Timeout:  p.Fallback.Timeout,
	}, httpClient), c.breaker("translate-tts"))

	return generator, primary, fallback
}

func (c *Container) breaker(name string) *resilience.CircuitBreaker {
	cfg := resilience.DefaultConfig(name)
	cfg.IsFailure = ai.IsProviderFault
	cb := resilience.NewCircuitBreaker(cfg, c.Logger)
	c.Breakers = append(c.Breakers, cb)
	c.Health.RegisterCheck("provider:"+name, false, func(context.Context) (health.Status, string, error) {
		if cb.State() == resilience.StateOpen {
			return health.StatusDegraded, name + " circuit is open", nil
		}
		return health.StatusUp, name + " circuit is " + string(cb.State()), nil
	})
	return cb
}

// Close releases connections held by the container. The database is owned by the caller.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
