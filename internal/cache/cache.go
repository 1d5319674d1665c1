// Package cache stores parsed page records in Redis so repeated
// requests for the same date skip the upstream fetch and parse.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/apod-api/internal/apod"
	"github.com/jonesrussell/apod-api/internal/logger"
)

// ErrMiss indicates the key is not cached.
var ErrMiss = errors.New("cache miss")

// Config configures the Redis-backed record cache.
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	TTL      time.Duration
}

// Store caches parsed records keyed by date and request flags. Entries
// expire after the configured TTL so a corrected upstream page is
// eventually re-read.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// New creates a record cache and verifies connectivity.
func New(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Store{client: client, ttl: cfg.TTL, log: log}, nil
}

// Key builds the cache key for a date and the request flags that change
// the response shape. Records with different flags never collide.
func Key(date string, conceptTags, thumbs bool) string {
	return fmt.Sprintf("apod:record:%s:concept_tags=%t:thumbs=%t", date, conceptTags, thumbs)
}

// Get returns the cached record for a key, or ErrMiss.
func (s *Store) Get(ctx context.Context, key string) (*apod.PageRecord, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var record apod.PageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode cached record %s: %w", key, err)
	}
	return &record, nil
}

// Set stores a record under a key with the configured TTL.
func (s *Store) Set(ctx context.Context, key string, record *apod.PageRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	s.log.Debug("cached record",
		logger.String("key", key),
		logger.Duration("ttl", s.ttl))
	return nil
}

// Ping checks Redis connectivity, for health reporting.
func (s *Store) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
