package stats

import (
	"fmt"
	"sort"
	"time"

	"kaongserver/internal/models"
	"kaongserver/internal/repository/sqlite"
)

// SessionGap is the maximum distance between consecutive assessment
// timestamps that still counts as the same scan session.
const SessionGap = 5 * time.Second

// Service computes aggregate assessment statistics.
type Service struct {
	repo *sqlite.AssessmentRepository
}

// New creates a stats service over the assessment repository.
func New(repo *sqlite.AssessmentRepository) *Service {
	return &Service{repo: repo}
}

// Compute builds the full statistics payload: totals, per-assessment
// breakdown and the derived scan-session figures.
func (s *Service) Compute() (*models.AssessmentStats, error) {
	total, err := s.repo.Total()
	if err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}

	breakdown, err := s.repo.Breakdown()
	if err != nil {
		return nil, fmt.Errorf("failed to compute breakdown: %w", err)
	}

	timestamps, err := s.repo.Timestamps()
	if err != nil {
		return nil, fmt.Errorf("failed to load timestamps: %w", err)
	}

	sessions := CountSessions(timestamps)

	var avgPerSession float64
	if sessions > 0 {
		avgPerSession = float64(total) / float64(sessions)
	}

	return &models.AssessmentStats{
		TotalAssessments: total,
		Breakdown:        breakdown,
		ScanSessions:     sessions,
		AvgPerSession:    avgPerSession,
	}, nil
}

// CountSessions groups timestamps into scan sessions: any run of records
// whose consecutive timestamps are within SessionGap of each other belongs
// to one session. The input does not need to be sorted.
func CountSessions(timestamps []time.Time) int {
	if len(timestamps) == 0 {
		return 0
	}

	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	sessions := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) > SessionGap {
			sessions++
		}
	}

	return sessions
}
