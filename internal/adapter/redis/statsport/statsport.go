package statsport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/core/ports/secondary"
	"gitlab.com/pixelgrid.net/internal/domain"
	"gitlab.com/pixelgrid.net/internal/protocol"
)

const (
	workerKeyPrefix = "imagegrid:worker:"
	summaryKey      = "imagegrid:summary"
	statsExpiration = 5 * time.Minute
)

var _ secondary.StatsStore = (*StatsStore)(nil)

// StatsStore mirrors worker statistics and dispatch summaries into
// Redis for external dashboards. The dispatcher never reads anything
// back from here; a restart starts from an empty mirror.
type StatsStore struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewStatsStore creates a Redis-backed statistics mirror.
func NewStatsStore(redisClient *redis.Client, logger primary.Logger) *StatsStore {
	return &StatsStore{
		redisClient: redisClient,
		logger:      logger,
	}
}

// SaveWorkerStats writes one worker's counters under its "ip:port" key
// with an expiration, so dead workers age out of the mirror.
func (s *StatsStore) SaveWorkerStats(ctx context.Context, workerKey string, stats *protocol.SlaveStatistics) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal worker statistics: %w", err)
	}

	key := fmt.Sprintf("%s%s", workerKeyPrefix, workerKey)
	if err := s.redisClient.Set(ctx, key, statsJSON, statsExpiration).Err(); err != nil {
		return fmt.Errorf("failed to save worker statistics: %w", err)
	}

	return nil
}

// SaveSummary writes the final balance report. No expiration: the last
// completed run stays visible until the next one overwrites it.
func (s *StatsStore) SaveSummary(ctx context.Context, summary *domain.DispatchSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch summary: %w", err)
	}

	if err := s.redisClient.Set(ctx, summaryKey, summaryJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save dispatch summary: %w", err)
	}

	return nil
}
