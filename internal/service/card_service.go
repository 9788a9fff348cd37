package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"

	"ygodeck/internal/catalog"
	"ygodeck/internal/logging"
	"ygodeck/internal/metrics"
)

const (
	searchCacheKeyPrefix = "cards:search:"
	banlistCacheKey      = "cards:banlist"

	defaultSearchCacheTTL  = 2 * time.Minute
	defaultBanlistCacheTTL = time.Hour
)

// CardCatalog is the upstream the card service reads from. *catalog.Client
// satisfies it.
type CardCatalog interface {
	SearchQuery(ctx context.Context, q catalog.Query) ([]catalog.Card, error)
	Banlist(ctx context.Context) (catalog.Banlist, error)
}

// ResponseCache stores serialized responses. *cache.Client satisfies it.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CardService handles card search.
type CardService interface {
	Search(ctx context.Context, f catalog.Filter) ([]catalog.Card, error)
	Banlist(ctx context.Context) (catalog.Banlist, error)
}

// CardServiceConfig tunes cache lifetimes. Zero values use defaults.
type CardServiceConfig struct {
	SearchTTL  time.Duration
	BanlistTTL time.Duration
}

type cardService struct {
	catalog    CardCatalog
	cache      ResponseCache
	searchTTL  time.Duration
	banlistTTL time.Duration
	logger     *logging.Logger
}

// NewCardService creates a new card service.
func NewCardService(upstream CardCatalog, cache ResponseCache, cfg CardServiceConfig, logger *logging.Logger) CardService {
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = defaultSearchCacheTTL
	}
	if cfg.BanlistTTL <= 0 {
		cfg.BanlistTTL = defaultBanlistCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &cardService{
		catalog:    upstream,
		cache:      cache,
		searchTTL:  cfg.SearchTTL,
		banlistTTL: cfg.BanlistTTL,
		logger:     logger.With("component", "card_service"),
	}
}

// Search returns banlist-enriched cards for the filter. Results are cached
// by the normalized query, so equivalent filters share an entry.
func (s *cardService) Search(ctx context.Context, f catalog.Filter) ([]catalog.Card, error) {
	q, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	key := searchCacheKeyPrefix + q.Key()

	var cached []catalog.Card
	if s.lookup(ctx, "search", key, &cached) {
		return cached, nil
	}

	var (
		cards   []catalog.Card
		banlist catalog.Banlist
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		cards, err = s.catalog.SearchQuery(ctx, q)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		banlist, err = s.Banlist(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	enriched := catalog.Enrich(cards, banlist)
	s.store(ctx, key, enriched, s.searchTTL)
	return enriched, nil
}

// Banlist returns the current non-Unlimited cards, cached for BanlistTTL.
func (s *cardService) Banlist(ctx context.Context) (catalog.Banlist, error) {
	var cached catalog.Banlist
	if s.lookup(ctx, "banlist", banlistCacheKey, &cached) {
		return cached, nil
	}

	banlist, err := s.catalog.Banlist(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, banlistCacheKey, banlist, s.banlistTTL)
	return banlist, nil
}

func (s *cardService) lookup(ctx context.Context, kind, key string, target any) bool {
	data, _ := s.cache.Get(ctx, key)
	if data == nil {
		metrics.CardCacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}
	if err := sonic.Unmarshal(data, target); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		metrics.CardCacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}
	metrics.CardCacheLookups.WithLabelValues(kind, "hit").Inc()
	return true
}

func (s *cardService) store(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := sonic.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	_ = s.cache.Set(ctx, key, payload, ttl)
}
