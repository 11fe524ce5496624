package geocode

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kidzout/crawler/app/dataset"
)

// NominatimProvider queries a Nominatim-compatible search endpoint.
// The usage policy of the public instance requires an identifying
// User-Agent and at most one request per second; pacing is the
// Geocoder's job, identification happens here.
type NominatimProvider struct {
	client   *resty.Client
	endpoint string
}

func NewNominatimProvider(endpoint, userAgent string, timeout time.Duration) *NominatimProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &NominatimProvider{
		client:   client,
		endpoint: endpoint,
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (p *NominatimProvider) Lookup(ctx context.Context, address string) (*dataset.Coordinates, error) {
	var results []nominatimResult

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      address,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to query geocoding service: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("geocoding service returned HTTP %d", resp.StatusCode())
	}

	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", results[0].Lon, err)
	}

	return &dataset.Coordinates{Lat: lat, Lon: lon}, nil
}
