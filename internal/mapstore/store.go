// Package mapstore persists established replacement mappings in Redis
// so separate rewriting invocations keep obfuscating the same value the
// same way. The engine stays storage-free: callers load mappings before
// a run and save the run's new mappings afterwards.
//
// The store necessarily holds original values (a replacement cannot be
// reused without knowing what it replaced), so it should only ever
// point at an operator-controlled Redis.
package mapstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/engine"
)

// Config contains mapping store configuration.
type Config struct {
	RedisURL       string
	KeyPrefix      string
	TTL            time.Duration
	MaxConnections int
	MinIdleConns   int
}

// Store is a Redis-backed mapping store. One hash per rule, keyed by
// original value.
type Store struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
}

// New creates a mapping store and verifies the Redis connection.
func New(config *Config, logger *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	store := &Store{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := store.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Mapping store initialized",
		zap.String("key_prefix", config.KeyPrefix),
		zap.Duration("ttl", config.TTL))

	return store, nil
}

// Close releases the Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ruleKey(rule string) string {
	return s.config.KeyPrefix + rule
}

// Load returns every persisted mapping for the given rules. A Redis
// failure is logged and degrades to an empty result: losing cross-run
// consistency is preferable to failing the run.
func (s *Store) Load(ctx context.Context, ruleNames []string) []engine.Mapping {
	var mappings []engine.Mapping

	for _, rule := range ruleNames {
		fields, err := s.client.HGetAll(ctx, s.ruleKey(rule)).Result()
		if err != nil {
			s.logger.Warn("Failed to load mappings", zap.String("rule", rule), zap.Error(err))
			continue
		}
		for original, replacement := range fields {
			mappings = append(mappings, engine.Mapping{
				Rule:        rule,
				Original:    original,
				Replacement: replacement,
			})
		}
	}

	return mappings
}

// Save persists the mappings established during a run and refreshes the
// TTL of every touched rule hash.
func (s *Store) Save(ctx context.Context, mappings []engine.Mapping) error {
	if len(mappings) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	touched := make(map[string]bool)

	for _, m := range mappings {
		key := s.ruleKey(m.Rule)
		pipe.HSet(ctx, key, m.Original, m.Replacement)
		touched[key] = true
	}
	if s.config.TTL > 0 {
		for key := range touched {
			pipe.Expire(ctx, key, s.config.TTL)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save mappings: %w", err)
	}

	s.logger.Debug("Mappings saved",
		zap.Int("count", len(mappings)),
		zap.Int("rules", len(touched)))

	return nil
}

// Clear deletes all persisted mappings for the given rules.
func (s *Store) Clear(ctx context.Context, ruleNames []string) error {
	keys := make([]string, 0, len(ruleNames))
	for _, rule := range ruleNames {
		keys = append(keys, s.ruleKey(rule))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	return nil
}
