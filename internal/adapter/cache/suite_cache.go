package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

// setIfCurrent writes the listing only while the location's generation still
// matches the one the reader saw before loading from the database.
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// SuiteCache stores available-suite listings in Redis. Entries are advisory
// snapshots; Reserve and Release on the suite table stay authoritative.
type SuiteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSuiteCache(client *redis.Client, ttl time.Duration) *SuiteCache {
	return &SuiteCache{client: client, ttl: ttl}
}

func suitesKey(locationID uuid.UUID) string {
	return fmt.Sprintf("suites:%s", locationID.String())
}

func generationKey(locationID uuid.UUID) string {
	return fmt.Sprintf("suites:%s:gen", locationID.String())
}

func (c *SuiteCache) GetAvailable(ctx context.Context, locationID uuid.UUID) ([]domain.Suite, int64, bool, error) {
	vals, err := c.client.MGet(ctx, suitesKey(locationID), generationKey(locationID)).Result()
	if err != nil {
		return nil, 0, false, err
	}

	var generation int64
	if raw, ok := vals[1].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, false, fmt.Errorf("corrupt suite cache generation: %w", err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, generation, false, nil
	}

	var suites []domain.Suite
	if err := json.Unmarshal([]byte(raw), &suites); err != nil {
		return nil, generation, false, fmt.Errorf("corrupt suite cache entry: %w", err)
	}
	return suites, generation, true, nil
}

// SetAvailable stores suites unless the location was invalidated after generation
// was read. A skipped write is not an error.
func (c *SuiteCache) SetAvailable(ctx context.Context, locationID uuid.UUID, generation int64, suites []domain.Suite) error {
	payload, err := json.Marshal(suites)
	if err != nil {
		return err
	}
	keys := []string{suitesKey(locationID), generationKey(locationID)}
	return setIfCurrent.Run(ctx, c.client, keys, strconv.FormatInt(generation, 10), payload, c.ttl.Milliseconds()).Err()
}

// Invalidate drops the listing and bumps the generation so in-flight fills are discarded.
func (c *SuiteCache) Invalidate(ctx context.Context, locationID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(locationID))
		pipe.Del(ctx, suitesKey(locationID))
		return nil
	})
	return err
}
