package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when no provider answered and nothing is cached.
var ErrUnavailable = errors.New("exchange rates unavailable")

// Service serves rate snapshots from a cache, refreshing from providers in order.
type Service struct {
	providers []Provider
	cache     Cache
	key       string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	last *Snapshot
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithKey sets the cache key.
func WithKey(key string) Option {
	return func(s *Service) { s.key = key }
}

// NewService builds a Service that tries providers in order.
func NewService(cache Cache, ttl time.Duration, logger *zap.Logger, providers []Provider, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache(nil)
	}
	if ttl <= 0 {
		ttl = constants.DefaultRatesTTL
	}
	s := &Service{
		providers: providers,
		cache:     cache,
		key:       constants.DefaultCacheKeyPrefix + ":" + constants.BaseCurrency,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromConfig wires providers and the cache backend from configuration.
// The returned close function releases the cache backend.
func NewServiceFromConfig(conf *config.Configuration, logger *zap.Logger) (*Service, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{Timeout: conf.Rates.Timeout}

	var providers []Provider
	if conf.Rates.EximAuthKey != "" {
		providers = append(providers, &EximProvider{
			BaseURL: conf.Rates.EximURL,
			AuthKey: conf.Rates.EximAuthKey,
			Client:  client,
		})
	}
	providers = append(providers, &OpenAPIProvider{
		URL:    conf.Rates.OpenAPIURL,
		Client: client,
	})

	var cache Cache
	closeFn := func() error { return nil }
	switch conf.Cache.Backend {
	case constants.CacheBackendRedis:
		if conf.Cache.RedisAddr == "" {
			return nil, nil, fmt.Errorf("cache backend %s requires redisAddr", constants.CacheBackendRedis)
		}
		redisCache := NewRedisCache(conf.Cache.RedisAddr, conf.Cache.RedisDB)
		cache = redisCache
		closeFn = redisCache.Close
	default:
		cache = NewMemoryCache(nil)
	}

	logger.Debug("rates service configured",
		zap.String("op", "rates.NewServiceFromConfig"),
		zap.String("cache", conf.Cache.Backend),
		zap.Int("providers", len(providers)),
		zap.Duration("ttl", conf.Rates.TTL),
	)

	svc := NewService(cache, conf.Rates.TTL, logger, providers,
		WithKey(conf.Cache.KeyPrefix+":"+constants.BaseCurrency))
	return svc, closeFn, nil
}

// Rates returns the cached snapshot, fetching a new one when the cache is empty or expired.
func (s *Service) Rates(ctx context.Context) (Snapshot, error) {
	snapshot, ok, err := s.cache.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("rate cache read failed",
			zap.String("op", "rates.Rates"),
			zap.Error(err),
		)
	}
	if ok && s.now().Sub(snapshot.FetchedAt) < s.ttl {
		return snapshot, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches from the providers unconditionally and stores the result.
// When every provider fails it returns the last good snapshot, if any.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	var errs []error
	for _, provider := range s.providers {
		table, err := provider.Fetch(ctx)
		if err != nil {
			s.logger.Warn("rate provider failed",
				zap.String("op", "rates.Refresh"),
				zap.String("provider", provider.Name()),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}

		snapshot := Snapshot{
			Rates:     table,
			Source:    provider.Name(),
			FetchedAt: s.now(),
		}
		if err := s.cache.Set(ctx, s.key, snapshot, s.ttl); err != nil {
			s.logger.Warn("rate cache write failed",
				zap.String("op", "rates.Refresh"),
				zap.Error(err),
			)
		}
		s.mu.Lock()
		s.last = &snapshot
		s.mu.Unlock()

		s.logger.Info("exchange rates refreshed",
			zap.String("op", "rates.Refresh"),
			zap.String("provider", provider.Name()),
			zap.Int("currencies", len(table)),
		)
		return snapshot, nil
	}

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		s.logger.Warn("serving stale exchange rates",
			zap.String("op", "rates.Refresh"),
			zap.Time("fetchedAt", last.FetchedAt),
		)
		return *last, nil
	}

	if len(errs) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no providers configured", ErrUnavailable)
	}
	return Snapshot{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// Run refreshes the snapshot every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = constants.DefaultRatesRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("starting rate refresher",
		zap.String("op", "rates.Run"),
		zap.Duration("interval", interval),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rate refresher stopped", zap.String("op", "rates.Run"))
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("scheduled rate refresh failed",
					zap.String("op", "rates.Run"),
					zap.Error(err),
				)
			}
		}
	}
}
