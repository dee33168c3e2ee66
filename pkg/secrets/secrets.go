// Package secrets resolves provider credentials from Vault or the environment.
package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"voice-dialogue-demo/backend/pkg/logger"
)

var ErrSecretNotFound = errors.New("secret not found")

// Manager provides access to secrets
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// EnvManager reads secrets from environment variables.
type EnvManager struct {
	lookup func(string) (string, bool)
}

// NewEnvManager creates an EnvManager over the process environment.
func NewEnvManager() *EnvManager {
	return &EnvManager{lookup: os.LookupEnv}
}

// EnvKey maps "elevenlabs-api.key" style keys to ELEVENLABS_API_KEY.
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

// GetSecret implements Manager.
func (m *EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	value, ok := m.lookup(EnvKey(key))
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// Resolve returns the secret for key, or fallback when it cannot be read.
func Resolve(ctx context.Context, m Manager, key, fallback string, log *logger.Logger) string {
	if m == nil {
		return fallback
	}
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			log.Warn("Failed to read secret, using configured value", "key", key, "error", err.Error())
		}
		return fallback
	}
	return value
}
