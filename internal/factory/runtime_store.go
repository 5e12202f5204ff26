package factory

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RuntimeOverride is an operator-supplied override for one adapter's
// endpoint/credentials, applied on top of whatever the profile document
// specifies - e.g. rotating an API key without a redeploy.
type RuntimeOverride struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// RuntimeConfigStore persists per-adapter runtime overrides.
type RuntimeConfigStore interface {
	Load(ctx context.Context, adapterName string) (RuntimeOverride, bool, error)
	Save(ctx context.Context, adapterName string, override RuntimeOverride) error
	Delete(ctx context.Context, adapterName string) error
}

const runtimeOverrideKey = "musicsearch:adapters:runtime:v1"

// RedisRuntimeConfigStore keeps overrides in a single Redis hash, one field
// per adapter name, JSON-encoded.
type RedisRuntimeConfigStore struct {
	client *redis.Client
	key    string
}

func NewRedisRuntimeConfigStore(client *redis.Client, key string) *RedisRuntimeConfigStore {
	if key == "" {
		key = runtimeOverrideKey
	}
	return &RedisRuntimeConfigStore{client: client, key: key}
}

func (s *RedisRuntimeConfigStore) Load(ctx context.Context, adapterName string) (RuntimeOverride, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, adapterName).Result()
	if err == redis.Nil {
		return RuntimeOverride{}, false, nil
	}
	if err != nil {
		return RuntimeOverride{}, false, err
	}
	var override RuntimeOverride
	if err := json.Unmarshal([]byte(raw), &override); err != nil {
		return RuntimeOverride{}, false, err
	}
	return override, true, nil
}

func (s *RedisRuntimeConfigStore) Save(ctx context.Context, adapterName string, override RuntimeOverride) error {
	encoded, err := json.Marshal(override)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, adapterName, encoded).Err()
}

func (s *RedisRuntimeConfigStore) Delete(ctx context.Context, adapterName string) error {
	return s.client.HDel(ctx, s.key, adapterName).Err()
}

// ApplyOverride merges a stored override onto a context map ahead of
// LoadProfile's ${VAR} substitution, so an override takes effect without
// touching the profile document itself.
func ApplyOverride(context map[string]string, adapterName string, override RuntimeOverride) {
	if override.BaseURL != "" {
		context[adapterName+"_URL"] = override.BaseURL
	}
	if override.APIKey != "" {
		context[adapterName+"_API_KEY"] = override.APIKey
	}
}
