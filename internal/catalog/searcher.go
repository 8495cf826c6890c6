package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pharmakit/pos-terminal/pkg/config"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
)

// ErrQueryTooShort reports a non-empty query under the configured minimum.
// The caller suppresses these instead of sending them upstream.
var ErrQueryTooShort = errors.New("catalog: query below minimum length")

// ErrSuperseded reports that a newer query arrived while this one was
// waiting or in flight; its result must not overwrite the newer one's.
var ErrSuperseded = errors.New("catalog: superseded by a newer query")

const initialCacheKey = "initial"

type productSearcher interface {
	SearchProducts(ctx context.Context, query string) ([]posapi.Product, error)
}

type listingCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	CatalogKey(parts ...string) string
}

// Searcher debounces catalog lookups and guarantees last-dispatched-wins:
// every call claims a generation token, and both the quiet window and the
// upstream response are checked against it, so a superseded call can never
// deliver results.
//
// The empty query is special: it always executes (it seeds the initial
// "all products" view) and is answered from a small cache, optionally
// shared across terminals through Redis.
type Searcher struct {
	mu  sync.Mutex
	gen uint64

	initial     []posapi.Product
	initialFrom time.Time

	backend productSearcher
	cache   listingCache
	minLen  int
	window  time.Duration
	ttl     time.Duration
	logg    *logger.Logger
}

// NewSearcher builds a catalog searcher. cache may be nil; the in-process
// listing cache still applies.
func NewSearcher(backend productSearcher, cache listingCache, cfg config.SearchConfig, logg *logger.Logger) (*Searcher, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend searcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = 2
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 400 * time.Millisecond
	}
	if cfg.InitialListingTTL <= 0 {
		cfg.InitialListingTTL = 5 * time.Minute
	}
	return &Searcher{
		backend: backend,
		cache:   cache,
		minLen:  cfg.MinQueryLength,
		window:  cfg.DebounceWindow,
		ttl:     cfg.InitialListingTTL,
		logg:    logg,
	}, nil
}

// Search trims and runs one lookup attempt. Input beyond trimming is not
// validated; too-short queries return ErrQueryTooShort without touching the
// network, and calls overtaken by a newer one return ErrSuperseded.
func (s *Searcher) Search(ctx context.Context, query string) ([]posapi.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		// Clearing the box is a query like any other for ordering:
		// it must supersede a pending lookup so that lookup's late
		// response cannot overwrite the initial listing.
		s.claim()
		return s.InitialListing(ctx)
	}
	if len([]rune(query)) < s.minLen {
		return nil, ErrQueryTooShort
	}

	gen := s.claim()

	timer := time.NewTimer(s.window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if s.currentGen() != gen {
		return nil, ErrSuperseded
	}

	products, err := s.backend.SearchProducts(ctx, query)

	// A newer query may have been dispatched while this one was in
	// flight; its render must win even though ours finished later.
	if s.currentGen() != gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog lookup")
	}
	return products, nil
}

// InitialListing serves the default "all products" view used to seed the
// terminal. It is cached in-process and, when available, write-through in
// Redis so sibling terminals skip the backend call.
func (s *Searcher) InitialListing(ctx context.Context) ([]posapi.Product, error) {
	s.mu.Lock()
	if s.initial != nil && time.Since(s.initialFrom) < s.ttl {
		cached := s.initial
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	if products, ok := s.fromSharedCache(ctx); ok {
		s.storeInitial(products)
		return products, nil
	}

	products, err := s.backend.SearchProducts(ctx, "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initial catalog listing")
	}
	s.storeInitial(products)
	s.toSharedCache(ctx, products)
	return products, nil
}

func (s *Searcher) claim() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

func (s *Searcher) currentGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Searcher) storeInitial(products []posapi.Product) {
	s.mu.Lock()
	s.initial = products
	s.initialFrom = time.Now()
	s.mu.Unlock()
}

func (s *Searcher) fromSharedCache(ctx context.Context) ([]posapi.Product, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CatalogKey(initialCacheKey))
	if err != nil {
		return nil, false
	}
	var products []posapi.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		s.logg.Warn(ctx, "catalog.cache_decode_failed")
		return nil, false
	}
	return products, true
}

func (s *Searcher) toSharedCache(ctx context.Context, products []posapi.Product) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CatalogKey(initialCacheKey), string(raw), s.ttl); err != nil {
		s.logg.Warn(ctx, "catalog.cache_write_failed")
	}
}
