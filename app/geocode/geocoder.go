package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/kidzout/crawler/app/database"
	"github.com/kidzout/crawler/app/dataset"
)

// ErrUnresolvable marks an address the provider has already looked up
// without a result. Cached so the same dead address costs one request
// per staleness window, not one per run.
var ErrUnresolvable = errors.New("address not resolvable")

// Provider performs the actual lookup. A nil result with a nil error
// means the provider answered but found nothing.
type Provider interface {
	Lookup(ctx context.Context, address string) (*dataset.Coordinates, error)
}

// Repository persists the cache between runs.
type Repository interface {
	GetAll() ([]database.GeocodeEntry, error)
	Upsert(entry database.GeocodeEntry) error
	DeleteStale(before time.Time) (int64, error)
}

type entry struct {
	coords       *dataset.Coordinates
	unresolvable bool
}

// Geocoder caches lookups by normalized address and paces provider
// requests independently of the crawl rate limiter. Nominatim allows
// one request per second; the cache keeps repeat addresses free.
type Geocoder struct {
	provider  Provider
	repo      Repository
	interval  time.Duration
	staleness time.Duration

	mu       sync.Mutex
	cache    map[string]*entry
	inflight map[string]chan struct{}

	slotMu   sync.Mutex
	nextSlot time.Time
}

func NewGeocoder(provider Provider, repo Repository, interval, staleness time.Duration) *Geocoder {
	return &Geocoder{
		provider:  provider,
		repo:      repo,
		interval:  interval,
		staleness: staleness,
		cache:     make(map[string]*entry),
		inflight:  make(map[string]chan struct{}),
	}
}

// Hydrate drops entries older than the staleness window and loads the
// rest into memory. Call once before the run.
func (g *Geocoder) Hydrate() error {
	if g.repo == nil {
		return nil
	}

	deleted, err := g.repo.DeleteStale(time.Now().UTC().Add(-g.staleness))
	if err != nil {
		return fmt.Errorf("failed to expire geocode cache: %w", err)
	}
	if deleted > 0 {
		slog.Debug("Expired stale geocode entries", "count", deleted)
	}

	entries, err := g.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load geocode cache: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range entries {
		cached := &entry{unresolvable: e.Unresolvable}
		if e.Lat != nil && e.Lon != nil {
			cached.coords = &dataset.Coordinates{Lat: *e.Lat, Lon: *e.Lon}
		}
		g.cache[e.AddressKey] = cached
	}
	slog.Debug("Hydrated geocode cache", "entries", len(entries))
	return nil
}

// Resolve returns cached coordinates or performs at most one provider
// lookup per distinct address, even under concurrent callers.
func (g *Geocoder) Resolve(ctx context.Context, address string) (*dataset.Coordinates, error) {
	key := NormalizeKey(address)
	if key == "" {
		return nil, fmt.Errorf("empty address")
	}

	for {
		g.mu.Lock()
		if cached, ok := g.cache[key]; ok {
			g.mu.Unlock()
			if cached.unresolvable {
				return nil, ErrUnresolvable
			}
			return cached.coords, nil
		}
		if wait, ok := g.inflight[key]; ok {
			g.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		g.inflight[key] = done
		g.mu.Unlock()

		coords, err := g.lookup(ctx, address)

		g.mu.Lock()
		delete(g.inflight, key)
		if err == nil {
			g.cache[key] = &entry{coords: coords, unresolvable: coords == nil}
		}
		g.mu.Unlock()
		close(done)

		if err != nil {
			// Transient provider failures are not cached, the next
			// run retries them.
			return nil, err
		}
		if coords == nil {
			g.persist(key, nil, true)
			return nil, ErrUnresolvable
		}
		g.persist(key, coords, false)
		return coords, nil
	}
}

func (g *Geocoder) lookup(ctx context.Context, address string) (*dataset.Coordinates, error) {
	if err := g.waitSlot(ctx); err != nil {
		return nil, err
	}
	return g.provider.Lookup(ctx, address)
}

// waitSlot spaces provider requests at least one interval apart across
// all goroutines.
func (g *Geocoder) waitSlot(ctx context.Context) error {
	g.slotMu.Lock()
	now := time.Now()
	slot := g.nextSlot
	if slot.Before(now) {
		slot = now
	}
	g.nextSlot = slot.Add(g.interval)
	g.slotMu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Geocoder) persist(key string, coords *dataset.Coordinates, unresolvable bool) {
	if g.repo == nil {
		return
	}
	e := database.GeocodeEntry{
		AddressKey:   key,
		Unresolvable: unresolvable,
		ResolvedAt:   time.Now().UTC(),
	}
	if coords != nil {
		e.Lat = &coords.Lat
		e.Lon = &coords.Lon
	}
	if err := g.repo.Upsert(e); err != nil {
		slog.Warn("Failed to persist geocode entry", "key", key, "error", err)
	}
}

// NormalizeKey folds case and collapses whitespace so spelling variants
// of the same address share one cache entry. A Caser is stateful, so a
// fresh one is built per call.
func NormalizeKey(address string) string {
	folded := cases.Fold().String(strings.TrimSpace(address))
	return strings.Join(strings.Fields(folded), " ")
}
