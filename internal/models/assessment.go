package models

import "time"

// Assessment represents one persisted ripeness assessment. Records are
// immutable once stored.
type Assessment struct {
	ID         int64     `json:"id"`
	ImageURL   string    `json:"image_url"`
	Assessment string    `json:"assessment"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// Assessment sources.
const (
	SourceCamera = "camera"
	SourceUpload = "upload"
)

// AssessmentFilter contains filtering options for querying assessments.
type AssessmentFilter struct {
	Source string
	Limit  int
}

// AssessmentBreakdown aggregates confidence statistics per assessment text.
type AssessmentBreakdown struct {
	Assessment    string  `json:"assessment"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	MinConfidence float64 `json:"min_confidence"`
}

// AssessmentStats is the payload of the statistics endpoint. ScanSessions
// is a read-time grouping of records whose consecutive timestamps are
// within five seconds of each other; it is never stored.
type AssessmentStats struct {
	TotalAssessments int                   `json:"total_assessments"`
	Breakdown        []AssessmentBreakdown `json:"assessment_breakdown"`
	ScanSessions     int                   `json:"scan_sessions"`
	AvgPerSession    float64               `json:"avg_per_session"`
}
