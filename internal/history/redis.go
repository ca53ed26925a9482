package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

type (
	// RedisStore is a Store backed by Redis. Each run is kept as JSON under
	// its own key, and a sorted set scored by start time indexes the runs
	RedisStore struct {
		client *redis.Client
		prefix string
		ttl    time.Duration
		limit  int
	}

	// RedisOption configures a RedisStore
	RedisOption func(*RedisStore)
)

// DefaultPrefix is the key prefix used when none is configured
const DefaultPrefix = "sequin"

var _ Store = (*RedisStore)(nil)

// WithPrefix sets the key prefix for Redis keys
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL sets how long recorded runs are kept. Zero keeps them until they
// are trimmed from the index
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithLimit sets the number of runs kept in the index
func WithLimit(limit int) RedisOption {
	return func(s *RedisStore) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewRedisStore creates a Redis-backed Store using client
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultPrefix,
		limit:  DefaultSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put records a run, trims the index to the configured limit, and deletes
// the data of any runs trimmed from it
func (s *RedisStore) Put(ctx context.Context, res *api.WorkflowResult) error {
	if err := checkRun(res); err != nil {
		return err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	idx := s.indexKey()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.runKey(res.RunID), data, s.ttl)
	pipe.ZAdd(ctx, idx, redis.Z{
		Score:  float64(res.StartedAt.UnixMilli()),
		Member: string(res.RunID),
	})
	evicted := pipe.ZRange(ctx, idx, 0, int64(-s.limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return s.evict(ctx, evicted.Val())
}

func (s *RedisStore) evict(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = s.runKey(api.RunID(id))
		members[i] = id
	}

	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.indexKey(), members...)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis eviction failed: %w", err)
	}
	return nil
}

// Get returns the run recorded under id
func (s *RedisStore) Get(
	ctx context.Context, id api.RunID,
) (*api.WorkflowResult, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeRun(data)
}

// List returns indexed runs, newest start time first. Runs whose data has
// expired are skipped
func (s *RedisStore) List(ctx context.Context) ([]*api.WorkflowResult, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index read failed: %w", err)
	}
	if len(ids) == 0 {
		return []*api.WorkflowResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.runKey(api.RunID(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	res := make([]*api.WorkflowResult, 0, len(vals))
	for i, v := range vals {
		data, ok := v.(string)
		if !ok {
			continue
		}
		run, err := decodeRun([]byte(data))
		if err != nil {
			slog.Warn("Skipping undecodable run",
				log.RunID(ids[i]),
				log.Error(err))
			continue
		}
		res = append(res, run)
	}
	return res, nil
}

func (s *RedisStore) runKey(id api.RunID) string {
	return s.prefix + ":run:" + string(id)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":runs"
}

func decodeRun(data []byte) (*api.WorkflowResult, error) {
	var res api.WorkflowResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &res, nil
}
