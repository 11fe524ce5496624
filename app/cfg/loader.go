package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Persistence
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./crawler.db" description:"SQLite database file for geocode cache and source quality state"`
	OutputFile string `long:"output-file" env:"OUTPUT_FILE" default:"./data.json" description:"Output dataset file"`

	// Crawl configuration
	SourcesFile      string  `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file containing the source list"`
	ManualEventsFile string  `long:"manual-events-file" env:"MANUAL_EVENTS_FILE" description:"Optional JSON file with manually curated events merged into the dataset"`
	WorkerCount      int     `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of parallel crawl workers"`
	RunTimeout       int     `long:"run-timeout" env:"RUN_TIMEOUT" default:"900" description:"Run-level timeout in seconds"`
	RequestTimeout   int     `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Per-request timeout in seconds"`
	BaseInterval     float64 `long:"base-interval" env:"BASE_INTERVAL" default:"4" description:"Minimum interval between requests to the same domain in seconds"`
	JitterFraction   float64 `long:"jitter-fraction" env:"JITTER_FRACTION" default:"0.2" description:"Jitter fraction applied to the per-domain interval"`

	// Fetcher selection
	Fetcher        string `long:"fetcher" env:"FETCHER" default:"http" choice:"http" choice:"render" description:"Transport used for source fetches"`
	RenderEndpoint string `long:"render-endpoint" env:"RENDER_ENDPOINT" description:"Browser-rendering proxy endpoint (required for --fetcher=render)"`

	// Geocoding
	GeocodeEndpoint  string  `long:"geocode-endpoint" env:"GEOCODE_ENDPOINT" default:"https://nominatim.openstreetmap.org/search" description:"Geocoding provider endpoint"`
	GeocodeInterval  float64 `long:"geocode-interval" env:"GEOCODE_INTERVAL" default:"1" description:"Minimum interval between geocoding lookups in seconds"`
	GeocodeStaleness int     `long:"geocode-staleness" env:"GEOCODE_STALENESS" default:"30" description:"Days before a cached geocode result is refreshed"`

	// Locality defaults
	City    string `long:"city" env:"CITY" default:"München" description:"Default city stamped onto extracted records"`
	Region  string `long:"region" env:"REGION" default:"BY" description:"Default region code"`
	Country string `long:"country" env:"COUNTRY" default:"DE" description:"Default country code"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Berlin" description:"Timezone for timestamps"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		OutputFile:       raw.OutputFile,
		SourcesFile:      raw.SourcesFile,
		ManualEventsFile: raw.ManualEventsFile,
		WorkerCount:      raw.WorkerCount,
		RunTimeout:       raw.RunTimeout,
		RequestTimeout:   raw.RequestTimeout,
		BaseInterval:     raw.BaseInterval,
		JitterFraction:   raw.JitterFraction,
		Fetcher:          raw.Fetcher,
		RenderEndpoint:   raw.RenderEndpoint,
		GeocodeEndpoint:  raw.GeocodeEndpoint,
		GeocodeInterval:  raw.GeocodeInterval,
		GeocodeStaleness: raw.GeocodeStaleness,
		City:             raw.City,
		Region:           raw.Region,
		Country:          raw.Country,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if cfg.Fetcher == "render" && cfg.RenderEndpoint == "" {
		return nil, fmt.Errorf("render fetcher selected but no render endpoint configured")
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting overrides the global configuration. Only for tests.
func SetForTesting(cfg *Cfg) {
	globalCfg = cfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
