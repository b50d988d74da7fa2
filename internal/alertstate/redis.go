package alertstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"HeikinSentinel/internal/model"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Key      string // hash holding one field per alert key
}

// hashClient is the subset of the Redis client the store uses.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *goredis.StringStringMapCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	Close() error
}

// RedisStore keeps alert state in a Redis hash. Each record is one HSET, which Redis
// applies atomically.
type RedisStore struct {
	entries
	client hashClient
	key    string
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and pings the server.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisStore(client, cfg.Key, logger), nil
}

func newRedisStore(client hashClient, key string, logger zerolog.Logger) *RedisStore {
	if key == "" {
		key = "heikinsentinel:alerts"
	}
	return &RedisStore{
		entries: entries{m: make(map[string]model.AlertRecord)},
		client:  client,
		key:     key,
		logger:  logger.With().Str("component", "alertstate").Str("redis_key", key).Logger(),
	}
}

func (s *RedisStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string]model.AlertRecord)
	s.dirty = false

	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return &StoreIOError{Op: "load", Path: s.key, Err: err}
	}
	for field, raw := range fields {
		var rec model.AlertRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn().Err(err).Str("field", field).Msg("skipping malformed alert record")
			continue
		}
		s.m[field] = rec
	}
	s.logger.Info().Int("entries", len(s.m)).Msg("alert state loaded")
	return nil
}

func (s *RedisStore) Record(ctx context.Context, key model.AlertKey, threshold float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.AlertRecord{Threshold: threshold, FiredAt: at.UTC()}
	s.m[key.String()] = rec
	if s.dirty {
		return s.saveAllLocked(ctx)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return &StoreIOError{Op: "save", Path: s.key, Err: err}
	}
	if err := s.client.HSet(ctx, s.key, key.String(), string(raw)).Err(); err != nil {
		s.dirty = true
		return &StoreIOError{Op: "save", Path: s.key, Err: err}
	}
	return nil
}

func (s *RedisStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveAllLocked(ctx)
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) saveAllLocked(ctx context.Context) error {
	if len(s.m) == 0 {
		s.dirty = false
		return nil
	}
	values := make([]interface{}, 0, 2*len(s.m))
	for field, rec := range s.m {
		raw, err := json.Marshal(rec)
		if err != nil {
			return &StoreIOError{Op: "save", Path: s.key, Err: err}
		}
		values = append(values, field, string(raw))
	}
	if err := s.client.HSet(ctx, s.key, values...).Err(); err != nil {
		s.dirty = true
		return &StoreIOError{Op: "save", Path: s.key, Err: err}
	}
	s.dirty = false
	return nil
}
