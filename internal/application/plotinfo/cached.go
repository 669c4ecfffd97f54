package plotinfo

import (
	"context"
	"strconv"
	"time"

	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/internal/infrastructure/database/redis"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// Cache names used as metric labels.
const (
	cachePlots   = "plots"
	cacheQueries = "queries"
)

// CachedService memoizes plot lookups, and optionally query payloads, in
// Redis. Lookups without plots are kept for the cache's null TTL only.
// Binary downloads always go to the backend.
type CachedService struct {
	backend      PlotService
	cache        redis.Cache
	ttl          time.Duration
	cacheQueries bool
	metrics      *prometheus.PlotInfoMetrics
	logger       logging.Logger
}

// CachedOption configures a CachedService.
type CachedOption func(*CachedService)

// WithCacheTTL sets the entry lifetime. Zero uses the cache default.
func WithCacheTTL(ttl time.Duration) CachedOption {
	return func(s *CachedService) { s.ttl = ttl }
}

// WithQueryCaching also caches info query payloads.
func WithQueryCaching() CachedOption {
	return func(s *CachedService) { s.cacheQueries = true }
}

// WithCacheMetrics reports hits and misses to m.
func WithCacheMetrics(m *prometheus.PlotInfoMetrics) CachedOption {
	return func(s *CachedService) { s.metrics = m }
}

// NewCachedService wraps backend with cache.
func NewCachedService(backend PlotService, cache redis.Cache, log logging.Logger, opts ...CachedOption) *CachedService {
	s := &CachedService{backend: backend, cache: cache, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func pointKey(x, y float64) string {
	return "plots:point:" + strconv.FormatFloat(x, 'f', -1, 64) + ":" + strconv.FormatFloat(y, 'f', -1, 64)
}

func egridKey(egrid string) string { return "plots:egrid:" + egrid }

func queryKey(url string) string { return "query:" + url }

func (s *CachedService) PlotsAtPoint(ctx context.Context, x, y float64) ([]plot.Record, error) {
	return s.plots(ctx, pointKey(x, y), func(ctx context.Context) ([]plot.Record, error) {
		return s.backend.PlotsAtPoint(ctx, x, y)
	})
}

func (s *CachedService) PlotsByEGRID(ctx context.Context, egrid string) ([]plot.Record, error) {
	return s.plots(ctx, egridKey(egrid), func(ctx context.Context) ([]plot.Record, error) {
		return s.backend.PlotsByEGRID(ctx, egrid)
	})
}

func (s *CachedService) plots(ctx context.Context, key string, load func(context.Context) ([]plot.Record, error)) ([]plot.Record, error) {
	var (
		out    []plot.Record
		loaded bool
	)
	err := s.cache.GetOrSet(ctx, key, &out, s.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		records, err := load(ctx)
		if err != nil || len(records) == 0 {
			return nil, err
		}
		return records, nil
	})
	if errors.Is(err, redis.ErrNullValue) {
		s.metrics.RecordCacheAccess(cachePlots, !loaded)
		return []plot.Record{}, nil
	}
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeSerialization) {
			s.logger.Warn("dropping unreadable cache entry", logging.String("key", key), logging.Err(err))
			_ = s.cache.Delete(ctx, key)
			return load(ctx)
		}
		return nil, err
	}
	s.metrics.RecordCacheAccess(cachePlots, !loaded)
	return out, nil
}

type cachedPayload struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

func (s *CachedService) FetchQuery(ctx context.Context, url string) (plot.Payload, error) {
	if !s.cacheQueries {
		return s.backend.FetchQuery(ctx, url)
	}
	var (
		out    cachedPayload
		loaded bool
	)
	err := s.cache.GetOrSet(ctx, queryKey(url), &out, s.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		p, err := s.backend.FetchQuery(ctx, url)
		if err != nil {
			return nil, err
		}
		return cachedPayload{Data: p.Data, ContentType: p.ContentType}, nil
	})
	if err != nil {
		return plot.Payload{}, err
	}
	s.metrics.RecordCacheAccess(cacheQueries, !loaded)
	return plot.Payload{Data: out.Data, ContentType: out.ContentType}, nil
}

func (s *CachedService) FetchBinary(ctx context.Context, url string) (plot.Binary, error) {
	return s.backend.FetchBinary(ctx, url)
}

// Invalidate drops every cached lookup and query.
func (s *CachedService) Invalidate(ctx context.Context) (int64, error) {
	n, err := s.cache.DeleteByPrefix(ctx, "plots:")
	if err != nil {
		return n, err
	}
	m, err := s.cache.DeleteByPrefix(ctx, "query:")
	return n + m, err
}
