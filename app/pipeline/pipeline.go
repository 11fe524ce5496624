package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/kidzout/crawler/app/cfg"
	"github.com/kidzout/crawler/app/dataset"
	"github.com/kidzout/crawler/app/enrich"
	"github.com/kidzout/crawler/app/extract"
	"github.com/kidzout/crawler/app/fetch"
	"github.com/kidzout/crawler/app/quality"
	"github.com/kidzout/crawler/app/ratelimit"
	"github.com/kidzout/crawler/app/sources"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseDispatching Phase = "dispatching"
	PhaseCollecting  Phase = "collecting"
	PhaseEnriching   Phase = "enriching"
	PhasePersisting  Phase = "persisting"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// SourceResult is the per-source outcome of a run, kept for the summary
// log and the quality tracker.
type SourceResult struct {
	Source  *sources.Source
	Outcome quality.Outcome
	Records int
	Skipped int
	Latency time.Duration

	extracted []extract.CandidateRecord
}

// Report is what a completed run hands back to the caller.
type Report struct {
	Events    int
	Locations int
	Sources   []SourceResult
	Duration  time.Duration
}

// Pipeline runs one crawl: dispatch all sources to a worker pool,
// collect and merge their records, enrich in parallel, persist the
// dataset. A Pipeline is single-use per Run call but safe to reuse
// sequentially.
type Pipeline struct {
	fetcher  fetch.Fetcher
	limiter  *ratelimit.Limiter
	enricher *enrich.Enricher
	tracker  *quality.Tracker

	mu    sync.Mutex
	phase Phase
}

func NewPipeline(fetcher fetch.Fetcher, limiter *ratelimit.Limiter, enricher *enrich.Enricher, tracker *quality.Tracker) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		limiter:  limiter,
		enricher: enricher,
		tracker:  tracker,
		phase:    PhaseIdle,
	}
}

func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
	slog.Debug("Pipeline phase changed", "phase", phase)
}

// Run executes one complete crawl over the given sources and writes the
// dataset. The context bounds the whole run; sources still in flight at
// the deadline are recorded as timeouts, already collected records are
// still enriched and persisted.
func (p *Pipeline) Run(ctx context.Context, srcs []*sources.Source) (*Report, error) {
	started := time.Now()
	appCfg := cfg.Get()

	p.setPhase(PhaseLoading)
	manual, err := loadManualEvents(appCfg.ManualEventsFile)
	if err != nil {
		slog.Warn("Failed to load manual events", "file", appCfg.ManualEventsFile, "error", err)
	}

	p.setPhase(PhaseDispatching)

	results := p.crawl(ctx, srcs, appCfg.WorkerCount)

	p.setPhase(PhaseCollecting)
	records := mergeRecords(srcs, results)

	// Enrichment and persistence run even when the deadline killed
	// part of the crawl; a partial dataset beats none. Use a fresh
	// context so geocoding is not already cancelled.
	enrichCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		enrichCtx, cancel = context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
	}

	p.setPhase(PhaseEnriching)
	events, locations := p.enrichAll(enrichCtx, records, appCfg.WorkerCount)

	if len(manual) > 0 {
		slog.Info("Merged manual events", "count", len(manual))
		events = append(events, manual...)
	}

	events = dataset.DedupeEvents(events)
	locations = dataset.DedupeLocations(locations)

	p.setPhase(PhasePersisting)
	ds := &dataset.Dataset{
		Events:    events,
		Locations: locations,
		Metadata: dataset.Metadata{
			Version:              appCfg.Version,
			LastCrawled:          time.Now().UTC().Format(time.RFC3339),
			TotalEvents:          len(events),
			TotalLocations:       len(locations),
			CrawlDurationSeconds: time.Since(started).Seconds(),
		},
	}
	if err := dataset.Write(appCfg.OutputFile, ds); err != nil {
		p.setPhase(PhaseFailed)
		return nil, fmt.Errorf("failed to write dataset: %w", err)
	}

	p.setPhase(PhaseDone)

	report := &Report{
		Events:    len(events),
		Locations: len(locations),
		Sources:   results,
		Duration:  time.Since(started),
	}
	p.logSummary(report)
	return report, nil
}

// crawl fans the sources out to the worker pool and returns one result
// per source, in source order.
func (p *Pipeline) crawl(ctx context.Context, srcs []*sources.Source, workerCount int) []SourceResult {
	type job struct {
		index int
		src   *sources.Source
	}

	jobs := make(chan job)
	results := make([]SourceResult, len(srcs))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = p.processSource(ctx, j.src)
			}
		}()
	}

	for i, src := range srcs {
		jobs <- job{index: i, src: src}
	}
	close(jobs)
	wg.Wait()

	return results
}

// processSource is the unit of work: rate limit, fetch, extract,
// classify. Never panics the run; every failure becomes an outcome.
func (p *Pipeline) processSource(ctx context.Context, src *sources.Source) SourceResult {
	result := SourceResult{Source: src}
	started := time.Now()
	defer func() {
		result.Latency = time.Since(started)
		p.tracker.Record(src.Name, result.Outcome)
	}()

	if err := p.limiter.Acquire(ctx, src.Domain()); err != nil {
		result.Outcome = quality.Outcome{Kind: quality.Timeout, Detail: "cancelled waiting for rate limit"}
		return result
	}

	resp, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		p.limiter.ReportFailure(src.Domain())
		result.Outcome = classifyFetchError(ctx, err)
		slog.Warn("Fetch failed", "source", src.Name, "error", err)
		return result
	}
	p.limiter.ReportSuccess(src.Domain())

	extracted, err := extract.ForFormat(src.Format).Extract(resp.Body, src)
	if err != nil {
		result.Outcome = quality.Outcome{Kind: quality.ParseError, ResponseBytes: len(resp.Body), Detail: err.Error()}
		slog.Warn("Extraction failed", "source", src.Name, "format", src.Format, "error", err)
		return result
	}

	result.Records = len(extracted.Records)
	result.Skipped = extracted.Skipped
	if len(extracted.Records) == 0 {
		result.Outcome = quality.Outcome{Kind: quality.Empty, ResponseBytes: len(resp.Body)}
	} else {
		result.Outcome = quality.Outcome{Kind: quality.Success, ResponseBytes: len(resp.Body)}
	}
	result.extracted = extracted.Records

	slog.Debug("Source processed", "source", src.Name,
		"records", result.Records, "skipped", result.Skipped, "latency", result.Latency)
	return result
}

func classifyFetchError(ctx context.Context, err error) quality.Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return quality.Outcome{Kind: quality.Timeout, Detail: err.Error()}
	}
	if code := fetch.StatusCode(err); code != 0 {
		return quality.Outcome{Kind: quality.HTTPError, StatusCode: code, Detail: err.Error()}
	}
	return quality.Outcome{Kind: quality.Timeout, Detail: err.Error()}
}

// mergeRecords flattens per-source results into one stream in source
// order. Extractors already order records by document position.
func mergeRecords(srcs []*sources.Source, results []SourceResult) []extract.CandidateRecord {
	var merged []extract.CandidateRecord
	for i := range srcs {
		merged = append(merged, results[i].extracted...)
	}
	return merged
}

// enrichAll runs enrichment in parallel and reassembles the original
// order, so output stability does not depend on goroutine timing.
func (p *Pipeline) enrichAll(ctx context.Context, records []extract.CandidateRecord, workerCount int) ([]*dataset.EnrichedEvent, []*dataset.Location) {
	type enriched struct {
		index    int
		event    *dataset.EnrichedEvent
		location *dataset.Location
	}

	indexes := make(chan int)
	out := make(chan enriched, len(records))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				record := records[i]
				if record.Kind == extract.KindLocation {
					location, err := p.enricher.EnrichLocation(ctx, record)
					if err != nil {
						slog.Warn("Dropped location record", "source", record.SourceName, "error", err)
						continue
					}
					out <- enriched{index: i, location: location}
					continue
				}
				event, err := p.enricher.EnrichEvent(ctx, record)
				if err != nil {
					slog.Warn("Dropped event record", "source", record.SourceName, "error", err)
					continue
				}
				out <- enriched{index: i, event: event}
			}
		}()
	}

	for i := range records {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	close(out)

	var all []enriched
	for e := range out {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].index < all[j].index })

	var events []*dataset.EnrichedEvent
	var locations []*dataset.Location
	for _, e := range all {
		if e.event != nil {
			events = append(events, e.event)
		} else {
			locations = append(locations, e.location)
		}
	}
	return events, locations
}

// loadManualEvents reads the curated events file. A missing file is
// normal, anything else is reported to the caller.
func loadManualEvents(path string) ([]*dataset.EnrichedEvent, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manual events: %w", err)
	}

	var events []*dataset.EnrichedEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse manual events: %w", err)
	}
	return events, nil
}

func (p *Pipeline) logSummary(report *Report) {
	var succeeded, failed int
	for _, result := range report.Sources {
		switch result.Outcome.Kind {
		case quality.Success, quality.Empty:
			succeeded++
		default:
			failed++
		}
		slog.Info("Source summary", "source", result.Source.Name,
			"outcome", result.Outcome.Kind, "records", result.Records,
			"skipped", result.Skipped, "latency", result.Latency.Round(time.Millisecond),
			"interval", p.limiter.Interval(result.Source.Domain()).Round(time.Millisecond))
	}
	slog.Info("Run complete", "events", report.Events, "locations", report.Locations,
		"sources_ok", succeeded, "sources_failed", failed,
		"duration", report.Duration.Round(time.Millisecond))
}
