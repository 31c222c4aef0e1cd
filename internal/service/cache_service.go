package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/eventbus"
)

// Cache key prefixes for derived view models.
const (
	CachePrefixDashboard = "dashboard:"
	CachePrefixRollup    = "rollup:"
	CachePrefixTally     = "tally:"
)

const invalidateTimeout = 2 * time.Second

var allViewPrefixes = []string{CachePrefixDashboard, CachePrefixRollup, CachePrefixTally}

// viewDependencies lists the cached views derived from each entity.
var viewDependencies = map[eventbus.Entity][]string{
	models.EntityStudents:    allViewPrefixes,
	models.EntityClasses:     allViewPrefixes,
	models.EntityTeachers:    allViewPrefixes,
	models.EntityInfractions: {CachePrefixDashboard, CachePrefixRollup},
	models.EntityAttendance:  {CachePrefixDashboard},
	models.EntityPayments:    {CachePrefixDashboard, CachePrefixTally},
	eventbus.EntityNamespace: allViewPrefixes,
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values whose key starts with prefix.
func (s *CacheService) Invalidate(ctx context.Context, prefix string) error {
	if !s.Enabled() {
		return nil
	}
	removed, err := s.repo.DeletePrefix(ctx, prefix)
	if err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
		return err
	}
	s.logger.Debug("cache invalidated", zap.String("prefix", prefix), zap.Int("removed", removed))
	return nil
}

// Attach subscribes the cache to change events so derived views are dropped when their inputs change.
func (s *CacheService) Attach(bus *eventbus.Bus) func() {
	return bus.SubscribeAll(s.handleEvent)
}

func (s *CacheService) handleEvent(evt eventbus.Event) {
	prefixes := viewDependencies[evt.Entity]
	if len(prefixes) == 0 || !s.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	for _, prefix := range prefixes {
		_ = s.Invalidate(ctx, prefix)
	}
}
