package secrets

import (
	"context"
	"testing"

	"newsflow/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvManager(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	m := NewEnvManager(logger.Discard())

	value, err := m.GetSecret(context.Background(), "openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)

	_, err = m.GetSecret(context.Background(), "missing.secret")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "missing", "fallback"))
}

func TestNewManagerWithoutVault(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "")
	m, err := NewManager(logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &EnvManager{}, m)
}

func TestNewVaultManagerRequiresAddress(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Enabled: true, Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewVaultManager(VaultConfig{Enabled: true, Address: "http://127.0.0.1:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}
