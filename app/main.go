package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kidzout/crawler/app/cfg"
	"github.com/kidzout/crawler/app/database"
	"github.com/kidzout/crawler/app/enrich"
	"github.com/kidzout/crawler/app/fetch"
	"github.com/kidzout/crawler/app/geocode"
	"github.com/kidzout/crawler/app/pipeline"
	"github.com/kidzout/crawler/app/quality"
	"github.com/kidzout/crawler/app/ratelimit"
	"github.com/kidzout/crawler/app/sources"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting crawler", "version", appCfg.Version, "city", appCfg.City)

	if err := run(appCfg); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database ready", "migration_version", version, "dirty", dirty)

	srcs, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	slog.Info("Loaded sources", "count", len(srcs))

	tracker := quality.NewTracker(database.NewQualityRepository(db))
	if err := tracker.Load(); err != nil {
		return fmt.Errorf("failed to load quality state: %w", err)
	}

	// Degraded sources sit the run out but keep their history; they
	// come back once their score recovers via manual resets or the
	// window aging out.
	active := srcs[:0]
	for _, src := range srcs {
		if tracker.ShouldSkip(src.Name) {
			slog.Warn("Skipping degraded source", "source", src.Name, "score", tracker.Score(src.Name))
			continue
		}
		active = append(active, src)
	}
	if len(active) == 0 {
		return fmt.Errorf("no usable sources, all %d are degraded", len(srcs))
	}

	requestTimeout := time.Duration(appCfg.RequestTimeout) * time.Second
	var fetcher fetch.Fetcher
	if appCfg.Fetcher == "render" {
		fetcher = fetch.NewRenderClient(appCfg.RenderEndpoint, requestTimeout)
	} else {
		fetcher = fetch.NewClient(requestTimeout)
	}

	provider := geocode.NewNominatimProvider(
		appCfg.GeocodeEndpoint,
		fmt.Sprintf("kidzout-crawler/%s", appCfg.Version),
		requestTimeout,
	)
	geocoder := geocode.NewGeocoder(
		provider,
		database.NewGeocodeRepository(db),
		time.Duration(appCfg.GeocodeInterval*float64(time.Second)),
		time.Duration(appCfg.GeocodeStaleness)*24*time.Hour,
	)
	if err := geocoder.Hydrate(); err != nil {
		return fmt.Errorf("failed to hydrate geocode cache: %w", err)
	}

	limiter := ratelimit.NewLimiter(
		time.Duration(appCfg.BaseInterval*float64(time.Second)),
		appCfg.JitterFraction,
	)
	enricher := enrich.NewEnricher(geocoder, appCfg.City, appCfg.Region, appCfg.Country)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(appCfg.RunTimeout)*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Warn("Received signal, finishing up", "signal", sig)
		cancel()
	}()

	p := pipeline.NewPipeline(fetcher, limiter, enricher, tracker)
	report, err := p.Run(ctx, active)
	if err != nil {
		return err
	}

	slog.Info("Dataset written", "file", appCfg.OutputFile,
		"events", report.Events, "locations", report.Locations)
	return nil
}
