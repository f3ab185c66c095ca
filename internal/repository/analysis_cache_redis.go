package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bgscan/internal/domain/analysis"
	"bgscan/internal/domain/position"
)

// AnalysisCache keeps analyses in Redis under the position ID and the side
// to move: native candidate moves depend on who is on roll.
type AnalysisCache struct {
	log    *zap.SugaredLogger
	client *redis.Client
	ttl    time.Duration
}

func NewAnalysisCache(log *zap.SugaredLogger, client *redis.Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{
		log:    log,
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(p position.BoardPosition) string {
	return "bgscan:analysis:" + string(p.ToMove) + ":" + p.ID
}

func (c *AnalysisCache) Get(ctx context.Context, p position.BoardPosition) (analysis.PositionAnalysis, bool) {
	if p.ID == "" {
		return analysis.PositionAnalysis{}, false
	}
	val, err := c.client.Get(ctx, cacheKey(p)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnw("analysis cache read failed", "position_id", p.ID, "error", err)
		}
		return analysis.PositionAnalysis{}, false
	}

	var res analysis.PositionAnalysis
	if err = json.Unmarshal(val, &res); err != nil {
		c.log.Warnw("analysis cache entry is corrupt", "position_id", p.ID, "error", err)
		return analysis.PositionAnalysis{}, false
	}
	return res, true
}

func (c *AnalysisCache) Put(ctx context.Context, p position.BoardPosition, a analysis.PositionAnalysis) {
	if p.ID == "" {
		return
	}
	bytes, err := json.Marshal(a)
	if err != nil {
		c.log.Warnw("failed to marshal analysis for cache", "error", err)
		return
	}
	if err = c.client.Set(ctx, cacheKey(p), bytes, c.ttl).Err(); err != nil {
		c.log.Warnw("analysis cache write failed", "position_id", p.ID, "error", err)
	}
}
