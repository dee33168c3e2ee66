package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voice-dialogue-demo/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

var (
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultConfig holds configuration for the Vault client
type VaultConfig struct {
	Address    string
	Token      string
	MountPath  string
	SecretPath string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

type kvReader interface {
	Get(ctx context.Context, path string) (*vault.KVSecret, error)
}

type cachedSecret struct {
	value   string
	expires time.Time
}

// VaultManager reads secrets from one KV v2 path and falls back to the
// environment for keys Vault does not hold.
type VaultManager struct {
	kv       kvReader
	path     string
	fallback Manager
	cacheTTL time.Duration
	now      func() time.Time
	log      *logger.Logger

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

// NewVaultManager creates a Vault-backed manager
func NewVaultManager(cfg VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if cfg.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	vc.Timeout = cfg.Timeout
	vc.MaxRetries = 3

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return newVaultManager(client.KVv2(cfg.MountPath), cfg, NewEnvManager(), log), nil
}

func newVaultManager(kv kvReader, cfg VaultConfig, fallback Manager, log *logger.Logger) *VaultManager {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &VaultManager{
		kv:       kv,
		path:     cfg.SecretPath,
		fallback: fallback,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
		log:      log,
		cache:    make(map[string]cachedSecret),
	}
}

// GetSecret implements Manager. Values are cached for the configured TTL.
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	c, ok := m.cache[key]
	m.mu.RUnlock()
	if ok && m.now().Before(c.expires) {
		return c.value, nil
	}

	value, err := m.fromVault(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Vault read failed, trying environment", "key", key, "error", err.Error())
		}
		if m.fallback == nil {
			return "", err
		}
		return m.fallback.GetSecret(ctx, key)
	}

	m.mu.Lock()
	m.cache[key] = cachedSecret{value: value, expires: m.now().Add(m.cacheTTL)}
	m.mu.Unlock()
	return value, nil
}

func (m *VaultManager) fromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.kv.Get(ctx, m.path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}
	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}
