package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"newsflow/backend/pkg/logger"
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// NewManager returns a Vault-backed manager when VAULT_ENABLED is set and an
// environment-only manager otherwise
func NewManager(log *logger.Logger) (Manager, error) {
	cfg := VaultConfigFromEnv()
	if !cfg.Enabled {
		return NewEnvManager(log), nil
	}
	return NewVaultManager(cfg, log)
}

// EnvManager reads secrets from environment variables
type EnvManager struct {
	log *logger.Logger
}

func NewEnvManager(log *logger.Logger) *EnvManager {
	return &EnvManager{log: log}
}

func (m *EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	return getFromEnvironment(key)
}

func (m *EnvManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

// envKey converts snake, kebab or dotted keys to an upper-case variable name
func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func getFromEnvironment(key string) (string, error) {
	value := os.Getenv(envKey(key))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}
