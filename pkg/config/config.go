package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port     string
		GRPCPort string
		Env      string
		Timeout  time.Duration
		BaseURL  string
		Version  string
	}

	// Database configuration
	Database struct {
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		Path     string
		MaxConns int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret        string
		ExpiryHours   time.Duration
		RefreshSecret string
		RefreshExpiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit       float64
		RateLimitBurst  int
		AllowedOrigins  []string
		TrustedProxies  []string
		MaxBodySize     int64
		ValidateOpenAPI bool
		OpenAPISpecPath string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Upstream text generation and speech providers
	Providers struct {
		OpenAI struct {
			APIKey  string
			BaseURL string
			Model   string
			Timeout time.Duration
		}
		ElevenLabs struct {
			APIKey          string
			BaseURL         string
			ModelID         string
			Stability       float64
			SimilarityBoost float64
			Timeout         time.Duration
		}
		Fallback struct {
			BaseURL  string
			Language string
			Timeout  time.Duration
		}
	}

	// Conversation defaults
	Dialogue struct {
		DefaultMode string
	}

	// Blob storage for audio and video files
	Storage struct {
		Backend       string
		LocalRoot     string
		PublicBaseURL string
		GCSBucket     string
		GCSCredsFile  string
		GCSPublicURL  string
		NATSURL       string
		NATSBucket    string
	}

	// Cache settings
	Cache struct {
		Enabled     bool
		Backend     string
		TTL         time.Duration
		PurgeWindow time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Vault struct {
		Enabled    bool
		Addr       string
		Token      string
		MountPath  string
		SecretPath string
	}

	Observability struct {
		ServiceName    string
		TracingEnabled bool
		MetricsEnabled bool
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		_ = godotenv.Load()

		instance = Load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load reads a fresh Config from the environment without touching the singleton.
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "9091")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 60*time.Second)
	cfg.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Server.Port)
	cfg.Server.Version = getEnvString("APP_VERSION", "dev")

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "voice-dialogue")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.Path = getEnvString("DB_PATH", "voice-dialogue.db")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// JWT config
	cfg.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	cfg.JWT.ExpiryHours = getEnvDuration("JWT_EXPIRY", 24*time.Hour)
	cfg.JWT.RefreshSecret = getEnvString("JWT_REFRESH_SECRET", "default-refresh-secret-do-not-use-in-production")
	cfg.JWT.RefreshExpiry = getEnvDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour)

	// Security config
	cfg.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 25<<20) // 25MB, avatar videos
	cfg.Security.ValidateOpenAPI = getEnvBool("VALIDATE_OPENAPI", false)
	cfg.Security.OpenAPISpecPath = getEnvString("OPENAPI_SPEC_PATH", "api/openapi.yaml")

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// Providers
	cfg.Providers.OpenAI.APIKey = getEnvString("OPENAI_API_KEY", "")
	cfg.Providers.OpenAI.BaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.Providers.OpenAI.Model = getEnvString("OPENAI_MODEL", "gpt-3.5-turbo")
	cfg.Providers.OpenAI.Timeout = getEnvDuration("OPENAI_TIMEOUT", 30*time.Second)

	cfg.Providers.ElevenLabs.APIKey = getEnvString("ELEVENLABS_API_KEY", "")
	cfg.Providers.ElevenLabs.BaseURL = getEnvString("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1")
	cfg.Providers.ElevenLabs.ModelID = getEnvString("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2")
	cfg.Providers.ElevenLabs.Stability = getEnvFloat("ELEVENLABS_STABILITY", 0.5)
	cfg.Providers.ElevenLabs.SimilarityBoost = getEnvFloat("ELEVENLABS_SIMILARITY_BOOST", 0.7)
	cfg.Providers.ElevenLabs.Timeout = getEnvDuration("ELEVENLABS_TIMEOUT", 30*time.Second)

	cfg.Providers.Fallback.BaseURL = getEnvString("FALLBACK_TTS_URL", "https://translate.google.com/translate_tts")
	cfg.Providers.Fallback.Language = getEnvString("FALLBACK_TTS_LANG", "en")
	cfg.Providers.Fallback.Timeout = getEnvDuration("FALLBACK_TTS_TIMEOUT", 20*time.Second)

	cfg.Dialogue.DefaultMode = getEnvString("DEFAULT_MODE", "friendly")

	// Storage
	cfg.Storage.Backend = getEnvString("STORAGE_BACKEND", "local")
	cfg.Storage.LocalRoot = getEnvString("MEDIA_ROOT", "media")
	cfg.Storage.PublicBaseURL = getEnvString("MEDIA_URL", "/media")
	cfg.Storage.GCSBucket = getEnvString("GCS_BUCKET", "")
	cfg.Storage.GCSCredsFile = getEnvString("GCS_CREDENTIALS_FILE", "")
	cfg.Storage.GCSPublicURL = getEnvString("GCS_PUBLIC_BASE_URL", "")
	cfg.Storage.NATSURL = getEnvString("NATS_URL", "nats://localhost:4222")
	cfg.Storage.NATSBucket = getEnvString("NATS_OBJECT_BUCKET", "VOICE_MEDIA")

	// Cache settings
	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
	cfg.Cache.Backend = getEnvString("CACHE_BACKEND", "memory")
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)

	cfg.Redis.Addr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Addr = getEnvString("VAULT_ADDR", "http://localhost:8200")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.MountPath = getEnvString("VAULT_MOUNT_PATH", "secret")
	cfg.Vault.SecretPath = getEnvString("VAULT_SECRET_PATH", "voice-dialogue")

	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "voice-dialogue")
	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)

	return cfg
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
