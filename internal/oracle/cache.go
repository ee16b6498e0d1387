package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/types"
)

// Cached stores finished analyses in Redis, keyed by the image digest and
// everything that shapes the prompt or the record: full or detailed, the food
// name, the echoed confidence and the attribution. Redis failures degrade to
// an uncached call.
type Cached struct {
	next   Oracle
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// WithCache wraps next.
func WithCache(next Oracle, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(img types.FoodImage, req AnalysisRequest) string {
	sum := sha256.Sum256(img.Data)
	attribution := req.ModelUsed
	if attribution == "" {
		attribution = AttributionOracle
	}
	kind, name := "full", "-"
	if !req.Full() {
		kind, name = "detailed", strings.ToLower(strings.TrimSpace(req.FoodName))
	}
	confidence := "-"
	if req.Confidence != nil {
		confidence = strconv.FormatFloat(*req.Confidence, 'f', 4, 64)
	}
	return fmt.Sprintf("analysis:%s:%s:%s:%s:%s", hex.EncodeToString(sum[:]), kind, name, confidence, attribution)
}

func (c *Cached) Identify(ctx context.Context, img types.FoodImage) (string, error) {
	return c.next.Identify(ctx, img)
}

func (c *Cached) Verify(ctx context.Context, img types.FoodImage, label string) (bool, error) {
	return c.next.Verify(ctx, img, label)
}

func (c *Cached) Analyze(ctx context.Context, img types.FoodImage, req AnalysisRequest) (*types.FoodRecord, error) {
	key := cacheKey(img, req)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var record types.FoodRecord
		if jerr := json.Unmarshal(data, &record); jerr == nil {
			c.logger.Debug("analysis cache hit", zap.String("key", key))
			return &record, nil
		}
		c.logger.Warn("discarding unreadable cached analysis", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("analysis cache read failed", zap.Error(err))
	}

	record, err := c.next.Analyze(ctx, img, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(record); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("analysis cache write failed", zap.Error(err))
		}
	}
	return record, nil
}
