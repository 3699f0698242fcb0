package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
)

const (
	defaultCacheTTL    = 12 * time.Hour
	maxCleanupInterval = 5 * time.Minute
)

type cachedQuote struct {
	quote     Quote
	expiresAt time.Time
}

type pendingFetch struct {
	done  chan struct{}
	quote Quote
	err   error
}

// CachedService converts amounts using quotes cached per currency pair.
// Concurrent misses for the same pair share one upstream fetch.
type CachedService struct {
	src RateSource
	ttl time.Duration
	now func() time.Time

	mu          sync.Mutex
	quotes      map[string]cachedQuote
	pending     map[string]*pendingFetch
	lastCleanup time.Time
}

// NewCachedService wraps src with an in-memory TTL cache.
func NewCachedService(src RateSource, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedService{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		quotes:  make(map[string]cachedQuote),
		pending: make(map[string]*pendingFetch),
	}
}

// Convert converts amount from one currency to another.
func (s *CachedService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (ConversionResult, error) {
	return convert(ctx, s, amount, from, to)
}

// Rate returns a cached quote for from->to, fetching it when missing or expired.
func (s *CachedService) Rate(ctx context.Context, from, to string) (Quote, error) {
	key := from + "->" + to

	s.mu.Lock()
	if c, ok := s.quotes[key]; ok {
		if s.now().Before(c.expiresAt) {
			s.mu.Unlock()
			return c.quote, nil
		}
		delete(s.quotes, key)
	}

	call, waiting := s.pending[key]
	if !waiting {
		call = &pendingFetch{done: make(chan struct{})}
		s.pending[key] = call
		// The fetch outlives any single caller so a short deadline cannot fail the others.
		go s.fetch(context.WithoutCancel(ctx), key, from, to, call)
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	case <-call.done:
		return call.quote, call.err
	}
}

func (s *CachedService) fetch(ctx context.Context, key, from, to string, call *pendingFetch) {
	q, err := s.src.Rate(ctx, from, to)
	if err == nil && !q.Rate.IsPositive() {
		err = ErrInvalidRate
	}
	if err != nil {
		logger.Log.Warn().Err(err).Str("pair", key).Msg("Exchange rate fetch failed")
	} else {
		logger.Log.Debug().Str("pair", key).Str("rate", q.Rate.String()).Msg("Exchange rate cached")
	}

	now := s.now()
	s.mu.Lock()
	if err == nil {
		s.quotes[key] = cachedQuote{quote: q, expiresAt: now.Add(s.ttl)}
		s.sweepLocked(now)
	}
	call.quote, call.err = q, err
	delete(s.pending, key)
	close(call.done)
	s.mu.Unlock()
}

func (s *CachedService) sweepLocked(now time.Time) {
	if !s.lastCleanup.IsZero() && now.Sub(s.lastCleanup) < min(s.ttl, maxCleanupInterval) {
		return
	}
	for key, c := range s.quotes {
		if !now.Before(c.expiresAt) {
			delete(s.quotes, key)
		}
	}
	s.lastCleanup = now
}
