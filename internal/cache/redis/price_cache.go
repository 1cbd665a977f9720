package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calebzhan/fflbot/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes.
// Each market's prices are stored as a hash at key "price:{marketID}" with
// fields "yes", "no" and "ts" (Unix nanosecond timestamp).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(marketID string) string {
	return "price:" + marketID
}

// SetPrice stores the latest YES/NO prices and timestamp for a market.
func (pc *PriceCache) SetPrice(ctx context.Context, marketID string, priceYes, priceNo float64, ts time.Time) error {
	key := priceKey(marketID)
	fields := map[string]interface{}{
		"yes": strconv.FormatFloat(priceYes, 'f', -1, 64),
		"no":  strconv.FormatFloat(priceNo, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", marketID, err)
	}
	return nil
}

// GetPrice retrieves the latest YES/NO prices and timestamp for a market.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrice(ctx context.Context, marketID string) (float64, float64, time.Time, error) {
	key := priceKey(marketID)
	vals, err := pc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", marketID, err)
	}
	if len(vals) == 0 {
		return 0, 0, time.Time{}, domain.ErrNotFound
	}

	yes, err := strconv.ParseFloat(vals["yes"], 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse yes price %s: %w", marketID, err)
	}
	no, err := strconv.ParseFloat(vals["no"], 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse no price %s: %w", marketID, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", marketID, err)
	}

	return yes, no, time.Unix(0, tsNano), nil
}

// GetPrices retrieves the latest YES prices for multiple markets using a
// pipeline. Markets whose keys do not exist are silently omitted from the
// result map.
func (pc *PriceCache) GetPrices(ctx context.Context, marketIDs []string) (map[string]float64, error) {
	if len(marketIDs) == 0 {
		return map[string]float64{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(marketIDs))
	for _, id := range marketIDs {
		cmds[id] = pipe.HGetAll(ctx, priceKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get prices pipeline: %w", err)
	}

	result := make(map[string]float64, len(marketIDs))
	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		yes, err := strconv.ParseFloat(vals["yes"], 64)
		if err != nil {
			continue
		}
		result[id] = yes
	}

	return result, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
