package quality

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kidzout/crawler/app/database"
)

type Kind string

const (
	Success    Kind = "success"
	HTTPError  Kind = "http_error"
	Timeout    Kind = "timeout"
	ParseError Kind = "parse_error"
	Empty      Kind = "empty"
)

// Outcome is the result of one attempt against a source.
type Outcome struct {
	Kind          Kind
	StatusCode    int // Only set for HTTPError
	ResponseBytes int // Body size of the fetch, 0 when nothing came back
	Detail        string
}

func (o Outcome) weight() float64 {
	switch o.Kind {
	case Success:
		return 1.0
	case Empty:
		// The fetch worked but yielded nothing, which may be the
		// source's fault or a calendar gap. Half credit.
		return 0.5
	default:
		return 0.0
	}
}

// Repository persists attempts and summaries between runs.
type Repository interface {
	GetRecentAttempts(sourceName string, limit int) ([]database.SourceAttempt, error)
	InsertAttempt(attempt database.SourceAttempt, keep int) error
	GetSummaries() ([]database.SourceQuality, error)
	UpsertSummary(summary database.SourceQuality) error
}

const (
	windowSize         = 50
	minAttemptsForSkip = 10
	skipScoreThreshold = 0.2
	skipFailureStreak  = 10
)

type state struct {
	window              []float64 // attempt weights, oldest first, capped at windowSize
	attempts            int
	consecutiveFailures int
	lastSuccessAt       *time.Time
}

// Tracker maintains a rolling quality score per source. Scores live in
// [0, 1]; a source with no history scores 1 so new sources always get
// crawled.
type Tracker struct {
	repo Repository

	mu      sync.Mutex
	sources map[string]*state
}

func NewTracker(repo Repository) *Tracker {
	return &Tracker{
		repo:    repo,
		sources: make(map[string]*state),
	}
}

// Load hydrates scores and attempt windows from the database. Call once
// before the run.
func (t *Tracker) Load() error {
	if t.repo == nil {
		return nil
	}

	summaries, err := t.repo.GetSummaries()
	if err != nil {
		return fmt.Errorf("failed to load quality summaries: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, summary := range summaries {
		s := &state{
			attempts:            summary.Attempts,
			consecutiveFailures: summary.ConsecutiveFailures,
			lastSuccessAt:       summary.LastSuccessAt,
		}

		attempts, err := t.repo.GetRecentAttempts(summary.SourceName, windowSize)
		if err != nil {
			return fmt.Errorf("failed to load attempts for %s: %w", summary.SourceName, err)
		}
		// Newest first in the query, oldest first in the window.
		for i := len(attempts) - 1; i >= 0; i-- {
			s.window = append(s.window, Outcome{Kind: Kind(attempts[i].Outcome)}.weight())
		}

		t.sources[summary.SourceName] = s
	}
	return nil
}

// Record folds one outcome into the source's state and persists it.
func (t *Tracker) Record(sourceName string, outcome Outcome) {
	now := time.Now().UTC()

	t.mu.Lock()
	s := t.sources[sourceName]
	if s == nil {
		s = &state{}
		t.sources[sourceName] = s
	}

	s.window = append(s.window, outcome.weight())
	if len(s.window) > windowSize {
		s.window = s.window[len(s.window)-windowSize:]
	}
	s.attempts++

	switch outcome.Kind {
	case Success, Empty:
		s.consecutiveFailures = 0
		at := now
		s.lastSuccessAt = &at
	default:
		s.consecutiveFailures++
	}

	summary := t.summaryLocked(sourceName, s, now)
	t.mu.Unlock()

	if t.repo == nil {
		return
	}
	attempt := database.SourceAttempt{
		SourceName:    sourceName,
		AttemptedAt:   now,
		Outcome:       string(outcome.Kind),
		StatusCode:    outcome.StatusCode,
		ResponseBytes: outcome.ResponseBytes,
		Detail:        outcome.Detail,
	}
	if err := t.repo.InsertAttempt(attempt, windowSize); err != nil {
		slog.Warn("Failed to persist source attempt", "source", sourceName, "error", err)
	}
	if err := t.repo.UpsertSummary(summary); err != nil {
		slog.Warn("Failed to persist quality summary", "source", sourceName, "error", err)
	}
}

// Score returns the windowed quality score for a source.
func (t *Tracker) Score(sourceName string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return scoreOf(t.sources[sourceName])
}

// ShouldSkip reports whether a source has degraded far enough that the
// run may leave it out. Advisory only, never applies to sources with a
// short history.
func (t *Tracker) ShouldSkip(sourceName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.sources[sourceName]
	if s == nil || s.attempts < minAttemptsForSkip {
		return false
	}
	return scoreOf(s) < skipScoreThreshold || s.consecutiveFailures >= skipFailureStreak
}

// Summary returns a snapshot for logging and persistence.
func (t *Tracker) Summary(sourceName string) database.SourceQuality {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.sources[sourceName]
	if s == nil {
		s = &state{}
	}
	return t.summaryLocked(sourceName, s, time.Now().UTC())
}

func (t *Tracker) summaryLocked(sourceName string, s *state, now time.Time) database.SourceQuality {
	return database.SourceQuality{
		SourceName:          sourceName,
		Score:               scoreOf(s),
		Attempts:            s.attempts,
		ConsecutiveFailures: s.consecutiveFailures,
		LastSuccessAt:       s.lastSuccessAt,
		UpdatedAt:           now,
	}
}

func scoreOf(s *state) float64 {
	if s == nil || len(s.window) == 0 {
		return 1.0
	}
	var sum float64
	for _, w := range s.window {
		sum += w
	}
	return sum / float64(len(s.window))
}
