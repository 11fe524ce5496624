package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kidzout/crawler/app/database"
	"github.com/kidzout/crawler/app/dataset"
)

type stubProvider struct {
	mu      sync.Mutex
	lookups []string
	coords  *dataset.Coordinates
	err     error
}

func (p *stubProvider) Lookup(_ context.Context, address string) (*dataset.Coordinates, error) {
	p.mu.Lock()
	p.lookups = append(p.lookups, address)
	p.mu.Unlock()
	return p.coords, p.err
}

func (p *stubProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lookups)
}

func newTestGeocoder(provider Provider) *Geocoder {
	return NewGeocoder(provider, nil, 0, 30*24*time.Hour)
}

func TestResolveCachesByNormalizedKey(t *testing.T) {
	provider := &stubProvider{coords: &dataset.Coordinates{Lat: 48.1, Lon: 11.5}}
	geocoder := newTestGeocoder(provider)

	for _, address := range []string{
		"Marienplatz 1, München",
		"marienplatz 1,  münchen",
		"  MARIENPLATZ 1, MÜNCHEN ",
	} {
		coords, err := geocoder.Resolve(context.Background(), address)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", address, err)
		}
		if coords.Lat != 48.1 {
			t.Errorf("wrong coordinates for %q: %+v", address, coords)
		}
	}

	if provider.count() != 1 {
		t.Errorf("expected exactly one provider lookup, got %d", provider.count())
	}
}

func TestResolveCachesNegativeResults(t *testing.T) {
	provider := &stubProvider{}
	geocoder := newTestGeocoder(provider)

	for i := 0; i < 3; i++ {
		_, err := geocoder.Resolve(context.Background(), "Nirgendwo 99")
		if !errors.Is(err, ErrUnresolvable) {
			t.Fatalf("expected ErrUnresolvable, got %v", err)
		}
	}
	if provider.count() != 1 {
		t.Errorf("expected one lookup for an unresolvable address, got %d", provider.count())
	}
}

func TestResolveDoesNotCacheProviderErrors(t *testing.T) {
	provider := &stubProvider{err: errors.New("timeout")}
	geocoder := newTestGeocoder(provider)

	for i := 0; i < 2; i++ {
		if _, err := geocoder.Resolve(context.Background(), "Marienplatz 1"); err == nil {
			t.Fatal("expected error")
		}
	}
	if provider.count() != 2 {
		t.Errorf("transient errors must be retried on the next call, got %d lookups", provider.count())
	}
}

func TestResolveSingleFlight(t *testing.T) {
	provider := &stubProvider{coords: &dataset.Coordinates{Lat: 1, Lon: 2}}
	geocoder := newTestGeocoder(provider)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := geocoder.Resolve(context.Background(), "Olympiapark"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if provider.count() != 1 {
		t.Errorf("expected one lookup across concurrent callers, got %d", provider.count())
	}
}

func TestResolveEmptyAddress(t *testing.T) {
	geocoder := newTestGeocoder(&stubProvider{})
	if _, err := geocoder.Resolve(context.Background(), "   "); err == nil {
		t.Error("expected error for blank address")
	}
}

type memoryRepo struct {
	mu      sync.Mutex
	entries map[string]database.GeocodeEntry
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[string]database.GeocodeEntry)}
}

func (r *memoryRepo) GetAll() ([]database.GeocodeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []database.GeocodeEntry
	for _, e := range r.entries {
		all = append(all, e)
	}
	return all, nil
}

func (r *memoryRepo) Upsert(entry database.GeocodeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.AddressKey] = entry
	return nil
}

func (r *memoryRepo) DeleteStale(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for key, e := range r.entries {
		if e.ResolvedAt.Before(before) {
			delete(r.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func TestHydrateServesFromRepository(t *testing.T) {
	lat, lon := 48.2, 11.6
	repo := newMemoryRepo()
	repo.Upsert(database.GeocodeEntry{
		AddressKey: NormalizeKey("Tierpark Hellabrunn, München"),
		Lat:        &lat,
		Lon:        &lon,
		ResolvedAt: time.Now().UTC(),
	})

	provider := &stubProvider{coords: &dataset.Coordinates{Lat: 0, Lon: 0}}
	geocoder := NewGeocoder(provider, repo, 0, 30*24*time.Hour)
	if err := geocoder.Hydrate(); err != nil {
		t.Fatal(err)
	}

	coords, err := geocoder.Resolve(context.Background(), "tierpark hellabrunn, münchen")
	if err != nil {
		t.Fatal(err)
	}
	if coords.Lat != 48.2 || provider.count() != 0 {
		t.Errorf("expected cache hit without lookup, got %+v after %d lookups", coords, provider.count())
	}
}

func TestUnresolvableMarkerRoundTrips(t *testing.T) {
	repo := newMemoryRepo()
	provider := &stubProvider{}

	first := NewGeocoder(provider, repo, 0, 30*24*time.Hour)
	if _, err := first.Resolve(context.Background(), "Nirgendwo 99"); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}

	// A fresh geocoder hydrated from the same repository must treat the
	// address as a known dead end, not as a cache miss.
	second := NewGeocoder(provider, repo, 0, 30*24*time.Hour)
	if err := second.Hydrate(); err != nil {
		t.Fatal(err)
	}
	if _, err := second.Resolve(context.Background(), "Nirgendwo 99"); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected restored unresolvable marker, got %v", err)
	}
	if provider.count() != 1 {
		t.Errorf("expected no second lookup after reload, got %d", provider.count())
	}
}

func TestHydrateExpiresStaleEntries(t *testing.T) {
	lat, lon := 1.0, 2.0
	repo := newMemoryRepo()
	repo.Upsert(database.GeocodeEntry{
		AddressKey: NormalizeKey("Alte Adresse 5"),
		Lat:        &lat,
		Lon:        &lon,
		ResolvedAt: time.Now().UTC().Add(-60 * 24 * time.Hour),
	})

	provider := &stubProvider{coords: &dataset.Coordinates{Lat: 9, Lon: 9}}
	geocoder := NewGeocoder(provider, repo, 0, 30*24*time.Hour)
	if err := geocoder.Hydrate(); err != nil {
		t.Fatal(err)
	}

	coords, err := geocoder.Resolve(context.Background(), "Alte Adresse 5")
	if err != nil {
		t.Fatal(err)
	}
	if coords.Lat != 9 || provider.count() != 1 {
		t.Errorf("expected fresh lookup after expiry, got %+v after %d lookups", coords, provider.count())
	}
}

func TestNominatimProvider(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("format") != "json" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"48.1371","lon":"11.5754"}]`))
	}))
	defer server.Close()

	provider := NewNominatimProvider(server.URL, "test-agent", 5*time.Second)
	coords, err := provider.Lookup(context.Background(), "Marienplatz 1, München, DE")
	if err != nil {
		t.Fatal(err)
	}
	if coords.Lat != 48.1371 || coords.Lon != 11.5754 {
		t.Errorf("wrong coordinates: %+v", coords)
	}
	if gotQuery != "Marienplatz 1, München, DE" {
		t.Errorf("wrong query sent: %q", gotQuery)
	}
}

func TestNominatimProviderNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	provider := NewNominatimProvider(server.URL, "test-agent", 5*time.Second)
	coords, err := provider.Lookup(context.Background(), "Nirgendwo")
	if err != nil || coords != nil {
		t.Errorf("expected nil, nil for empty result, got %+v, %v", coords, err)
	}
}
