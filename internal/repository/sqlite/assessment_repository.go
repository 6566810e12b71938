package sqlite

import (
	"fmt"
	"time"

	"kaongserver/internal/models"
)

// AssessmentRepository stores and queries assessment records.
type AssessmentRepository struct {
	db *DB
}

// NewAssessmentRepository creates a new SQLite assessment repository.
func NewAssessmentRepository(db *DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Insert adds a new assessment record and returns its server-assigned id.
func (r *AssessmentRepository) Insert(a *models.Assessment) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	timestamp := a.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO assessments (image_url, assessment, confidence, source, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, a.ImageURL, a.Assessment, a.Confidence, a.Source, timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert assessment: %w", err)
	}

	return result.LastInsertId()
}

// GetAll retrieves assessments newest-first, optionally filtered by source
// and capped by limit.
func (r *AssessmentRepository) GetAll(filter *models.AssessmentFilter) ([]models.Assessment, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, image_url, assessment, confidence, source, timestamp
		FROM assessments
		WHERE 1=1
	`
	args := []interface{}{}

	if filter != nil && filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}

	query += " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var assessments []models.Assessment
	for rows.Next() {
		var a models.Assessment
		if err := rows.Scan(&a.ID, &a.ImageURL, &a.Assessment, &a.Confidence, &a.Source, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

// Total returns the number of stored assessments.
func (r *AssessmentRepository) Total() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM assessments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

// Breakdown aggregates confidence statistics per assessment text.
func (r *AssessmentRepository) Breakdown() ([]models.AssessmentBreakdown, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT assessment, COUNT(*), AVG(confidence), MAX(confidence), MIN(confidence)
		FROM assessments
		GROUP BY assessment
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []models.AssessmentBreakdown
	for rows.Next() {
		var b models.AssessmentBreakdown
		if err := rows.Scan(&b.Assessment, &b.Count, &b.AvgConfidence, &b.MaxConfidence, &b.MinConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown: %w", err)
		}
		breakdown = append(breakdown, b)
	}

	return breakdown, rows.Err()
}

// Timestamps returns all assessment timestamps in ascending order, used
// for the read-time scan-session grouping.
func (r *AssessmentRepository) Timestamps() ([]time.Time, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT timestamp FROM assessments ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query timestamps: %w", err)
	}
	defer rows.Close()

	var timestamps []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		timestamps = append(timestamps, ts)
	}

	return timestamps, rows.Err()
}

// Ping verifies the underlying connection, for health checks.
func (r *AssessmentRepository) Ping() error {
	return r.db.Ping()
}

// DeleteAll removes every assessment record.
func (r *AssessmentRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM assessments`); err != nil {
		return fmt.Errorf("failed to delete assessments: %w", err)
	}
	return nil
}
