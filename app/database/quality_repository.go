package database

import (
	"fmt"
)

// QualityRepository handles database operations for source quality tracking
type QualityRepository struct {
	db *DB
}

// NewQualityRepository creates a new quality repository
func NewQualityRepository(db *DB) *QualityRepository {
	return &QualityRepository{db: db}
}

// GetRecentAttempts returns the newest attempts for a source, newest
// first, capped at limit.
func (r *QualityRepository) GetRecentAttempts(sourceName string, limit int) ([]SourceAttempt, error) {
	rows, err := r.db.Query(`
		SELECT source_name, attempted_at, outcome, status_code, response_bytes, detail
		FROM source_attempts
		WHERE source_name = ?
		ORDER BY id DESC
		LIMIT ?
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query source attempts: %w", err)
	}
	defer rows.Close()

	var attempts []SourceAttempt
	for rows.Next() {
		var attempt SourceAttempt
		if err := rows.Scan(&attempt.SourceName, &attempt.AttemptedAt, &attempt.Outcome,
			&attempt.StatusCode, &attempt.ResponseBytes, &attempt.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan source attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// InsertAttempt records one fetch outcome and prunes history beyond the
// rolling window
func (r *QualityRepository) InsertAttempt(attempt SourceAttempt, keep int) error {
	_, err := r.db.Exec(`
		INSERT INTO source_attempts (source_name, attempted_at, outcome, status_code, response_bytes, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`, attempt.SourceName, attempt.AttemptedAt, attempt.Outcome, attempt.StatusCode, attempt.ResponseBytes, attempt.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert source attempt: %w", err)
	}

	_, err = r.db.Exec(`
		DELETE FROM source_attempts
		WHERE source_name = ? AND id NOT IN (
			SELECT id FROM source_attempts
			WHERE source_name = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`, attempt.SourceName, attempt.SourceName, keep)
	if err != nil {
		return fmt.Errorf("failed to prune source attempts: %w", err)
	}
	return nil
}

// GetSummaries loads the per-source quality summaries
func (r *QualityRepository) GetSummaries() ([]SourceQuality, error) {
	rows, err := r.db.Query(`
		SELECT source_name, score, attempts, consecutive_failures, last_success_at, updated_at
		FROM source_quality
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source quality: %w", err)
	}
	defer rows.Close()

	var summaries []SourceQuality
	for rows.Next() {
		var summary SourceQuality
		if err := rows.Scan(&summary.SourceName, &summary.Score, &summary.Attempts,
			&summary.ConsecutiveFailures, &summary.LastSuccessAt, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source quality: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// UpsertSummary inserts or replaces a source's quality summary
func (r *QualityRepository) UpsertSummary(summary SourceQuality) error {
	_, err := r.db.Exec(`
		INSERT INTO source_quality (source_name, score, attempts, consecutive_failures, last_success_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_name) DO UPDATE SET
			score = excluded.score,
			attempts = excluded.attempts,
			consecutive_failures = excluded.consecutive_failures,
			last_success_at = excluded.last_success_at,
			updated_at = excluded.updated_at
	`, summary.SourceName, summary.Score, summary.Attempts,
		summary.ConsecutiveFailures, summary.LastSuccessAt, summary.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert source quality: %w", err)
	}
	return nil
}
