package retail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "retail:version"
	bumpChannel     = "retail.bump"
)

// Cache wraps Redis based caching with versioning controls. Bumping the
// version after a load or cleanse pass guarantees no report serves a mix of
// pre- and post-mutation aggregates.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join(parts, ":"), ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the global version and
// publishing an event for other processes.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

func keyDailySales(date time.Time) string {
	return strings.Join([]string{"retail", "daily", date.Format("2006-01-02")}, ":")
}

func keyClothingBulk(month YearMonth) string {
	return strings.Join([]string{"retail", "clothing_bulk", month.String()}, ":")
}

func keyCategoryTotals() string {
	return "retail:category_totals"
}

func keyAverageAge(category string) string {
	return strings.Join([]string{"retail", "avg_age", category}, ":")
}

func keyHighValue(threshold float64) string {
	return strings.Join([]string{"retail", "high_value", strconv.FormatFloat(threshold, 'f', -1, 64)}, ":")
}

func keyGenderCategory() string {
	return "retail:gender_category"
}

func keyBestMonth() string {
	return "retail:best_month"
}

func keyTopCustomers(n int) string {
	return strings.Join([]string{"retail", "top_customers", strconv.Itoa(n)}, ":")
}

func keyUniqueCustomers() string {
	return "retail:unique_customers"
}

func keyShifts() string {
	return "retail:shifts"
}
