package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-dialogue-demo/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data  map[string]interface{}
	err   error
	calls int
}

func (f *fakeKV) Get(_ context.Context, _ string) (*vault.KVSecret, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &vault.KVSecret{Data: f.data}, nil
}

func envManager(env map[string]string) *EnvManager {
	return &EnvManager{lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "ELEVENLABS_API_KEY", EnvKey("elevenlabs-api.key"))
	assert.Equal(t, "OPENAI_API_KEY", EnvKey("openai_api_key"))
}

func TestVaultManagerCachesAndFallsBack(t *testing.T) {
	kv := &fakeKV{data: map[string]interface{}{"openai_api_key": "from-vault"}}
	env := envManager(map[string]string{"ELEVENLABS_API_KEY": "from-env"})
	m := newVaultManager(kv, VaultConfig{SecretPath: "app", CacheTTL: time.Minute}, env, logger.Discard())

	now := time.Now()
	m.now = func() time.Time { return now }

	v, err := m.GetSecret(context.Background(), "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", v)

	_, err = m.GetSecret(context.Background(), "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, 1, kv.calls)

	now = now.Add(2 * time.Minute)
	_, err = m.GetSecret(context.Background(), "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, 2, kv.calls)

	v, err = m.GetSecret(context.Background(), "elevenlabs_api_key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	kv.err = errors.New("permission denied")
	_, err = m.GetSecret(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestResolve(t *testing.T) {
	env := envManager(map[string]string{"OPENAI_API_KEY": "sk-env"})
	log := logger.Discard()

	assert.Equal(t, "sk-env", Resolve(context.Background(), env, "openai_api_key", "sk-config", log))
	assert.Equal(t, "fallback", Resolve(context.Background(), env, "unknown", "fallback", log))
	assert.Equal(t, "fallback", Resolve(context.Background(), nil, "openai_api_key", "fallback", log))
}

func TestNewVaultManagerValidatesConfig(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)
	_, err = NewVaultManager(VaultConfig{Address: "http://127.0.0.1:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}
