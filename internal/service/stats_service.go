package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/observability"
	"github.com/rims-platform/rims-api/internal/repository"
)

const (
	ownerStatsKeyPrefix = "stats:owner:"
	adminStatsKey       = "stats:all"
)

// StatsService aggregates record counts for dashboards. Results are cached in
// Redis with a short TTL; a cache outage degrades to direct queries.
type StatsService interface {
	OwnerStats(ctx context.Context, ownerID string) (dto.RecordStatsResponse, error)
	AdminStats(ctx context.Context, callerID string) (dto.RecordStatsResponse, error)
}

type statsService struct {
	records repository.RecordRepository
	users   repository.UserRepository
	redis   *redis.Client
	ttl     time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewStatsService constructs the stats service.
func NewStatsService(records repository.RecordRepository, users repository.UserRepository, redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &statsService{
		records: records,
		users:   users,
		redis:   redisClient,
		ttl:     ttl,
		logger:  logger.With().Str("component", "stats_service").Logger(),
		tracer:  otel.Tracer("github.com/rims-platform/rims-api/internal/service/stats"),
	}
}

func (s *statsService) OwnerStats(ctx context.Context, ownerID string) (dto.RecordStatsResponse, error) {
	return s.cached(ctx, ownerStatsKeyPrefix+ownerID, &ownerID)
}

func (s *statsService) AdminStats(ctx context.Context, callerID string) (dto.RecordStatsResponse, error) {
	if _, err := requireStoredAdmin(ctx, s.users, callerID); err != nil {
		return dto.RecordStatsResponse{}, err
	}

	return s.cached(ctx, adminStatsKey, nil)
}

func (s *statsService) cached(ctx context.Context, key string, ownerID *string) (dto.RecordStatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stats.fetch", trace.WithAttributes(attribute.String("stats.key", key)))
	defer span.End()

	if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
		var stats dto.RecordStatsResponse
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			observability.StatsCache().WithLabelValues("hit").Inc()
			stats.CacheHit = true
			return stats, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding unreadable cached stats entry")
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Str("key", key).Msg("stats cache read failed, querying directly")
	}

	observability.StatsCache().WithLabelValues("miss").Inc()

	stats, err := s.compute(ctx, ownerID)
	if err != nil {
		return dto.RecordStatsResponse{}, err
	}

	if encoded, err := json.Marshal(stats); err == nil {
		if err := s.redis.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
		}
	}

	stats.CacheHit = false

	return stats, nil
}

func (s *statsService) compute(ctx context.Context, ownerID *string) (dto.RecordStatsResponse, error) {
	byStatus, err := s.records.CountByStatus(ctx, ownerID)
	if err != nil {
		return dto.RecordStatsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to count records by status", err)
	}

	byType, err := s.records.CountByType(ctx, ownerID)
	if err != nil {
		return dto.RecordStatsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to count records by type", err)
	}

	stats := dto.RecordStatsResponse{
		Pending:     byStatus[models.StatusPending],
		Approved:    byStatus[models.StatusApproved],
		Rejected:    byStatus[models.StatusRejected],
		ByType:      byType,
		GeneratedAt: time.Now().UTC(),
	}
	for _, count := range byStatus {
		stats.Total += count
	}

	return stats, nil
}
