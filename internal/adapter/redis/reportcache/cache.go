package reportcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/core/ports/secondary"
	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

const (
	reportKeyPrefix = "unittest:report:"
	recentKey       = "unittest:recent"
)

var _ secondary.ReportCache = (*ReportCache)(nil)

// ReportCache implements the ReportCache interface with Redis
type ReportCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	recentLimit int64
	logger      primary.Logger
}

func NewReportCache(redisClient *redis.Client, ttl time.Duration, recentLimit int64, logger primary.Logger) *ReportCache {
	if recentLimit <= 0 {
		recentLimit = 100
	}
	return &ReportCache{
		redisClient: redisClient,
		ttl:         ttl,
		recentLimit: recentLimit,
		logger:      logger,
	}
}

func reportKey(runID uuid.UUID) string {
	return reportKeyPrefix + runID.String()
}

// SetReport stores the report and moves its ID to the head of the recent list
func (c *ReportCache) SetReport(ctx context.Context, report *domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		c.logger.Error("Failed to marshal report", "runId", report.RunID, "error", err)
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	id := report.RunID.String()
	_, err = c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reportKey(report.RunID), data, c.ttl)
		pipe.LRem(ctx, recentKey, 0, id)
		pipe.LPush(ctx, recentKey, id)
		pipe.LTrim(ctx, recentKey, 0, c.recentLimit-1)
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to cache report", "runId", report.RunID, "error", err)
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// GetReport retrieves a cached report
func (c *ReportCache) GetReport(ctx context.Context, runID uuid.UUID) (*domain.Report, error) {
	data, err := c.redisClient.Get(ctx, reportKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.RunNotFound
		}
		return nil, fmt.Errorf("failed to get cached report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// RecentRunIDs lists cached run IDs, newest first. IDs whose report expired are skipped.
func (c *ReportCache) RecentRunIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	stop := int64(limit) - 1
	if limit <= 0 || int64(limit) > c.recentLimit {
		stop = c.recentLimit - 1
	}
	ids, err := c.redisClient.LRange(ctx, recentKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reportKeyPrefix + id
	}
	live, err := c.redisClient.Exists(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check recent runs: %w", err)
	}

	out := make([]uuid.UUID, 0, len(ids))
	if live == int64(len(ids)) {
		for _, id := range ids {
			if runID, err := uuid.Parse(id); err == nil {
				out = append(out, runID)
			}
		}
		return out, nil
	}

	for _, id := range ids {
		runID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		n, err := c.redisClient.Exists(ctx, reportKey(runID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check recent run: %w", err)
		}
		if n == 1 {
			out = append(out, runID)
		}
	}
	return out, nil
}
