package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kaongserver/internal/models"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "assessments_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func insertTestAssessment(t *testing.T, repo *AssessmentRepository, source string, confidence float64, ts time.Time) int64 {
	t.Helper()

	id, err := repo.Insert(&models.Assessment{
		ImageURL:   "/static/uploads/kaong_" + source + "_20260801_120000_abcd1234.jpg",
		Assessment: models.AssessmentReady,
		Confidence: confidence,
		Source:     source,
		Timestamp:  ts,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return id
}

func TestAssessmentRepository_Insert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)

	id, err := repo.Insert(&models.Assessment{
		ImageURL:   "/static/uploads/test.jpg",
		Assessment: models.AssessmentReady,
		Confidence: 0.93,
		Source:     models.SourceUpload,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("Expected positive ID, got %d", id)
	}
}

func TestAssessmentRepository_Insert_DefaultsTimestamp(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)

	before := time.Now().Add(-time.Second)
	_, err := repo.Insert(&models.Assessment{
		ImageURL:   "/static/uploads/test.jpg",
		Assessment: models.AssessmentRotten,
		Confidence: 0.85,
		Source:     models.SourceCamera,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	all, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 assessment, got %d", len(all))
	}
	if all[0].Timestamp.Before(before) {
		t.Errorf("Expected timestamp to default to now, got %v", all[0].Timestamp)
	}
}

func TestAssessmentRepository_GetAll_NewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	insertTestAssessment(t, repo, models.SourceCamera, 0.5, base)
	insertTestAssessment(t, repo, models.SourceCamera, 0.6, base.Add(2*time.Minute))
	insertTestAssessment(t, repo, models.SourceUpload, 0.7, base.Add(time.Minute))

	all, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 assessments, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Errorf("Expected newest-first ordering, got %v before %v", all[i-1].Timestamp, all[i].Timestamp)
		}
	}
}

func TestAssessmentRepository_GetAll_SourceFilter(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	insertTestAssessment(t, repo, models.SourceCamera, 0.5, base)
	insertTestAssessment(t, repo, models.SourceUpload, 0.6, base.Add(time.Minute))
	insertTestAssessment(t, repo, models.SourceCamera, 0.7, base.Add(2*time.Minute))

	cameraOnly, err := repo.GetAll(&models.AssessmentFilter{Source: models.SourceCamera})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(cameraOnly) != 2 {
		t.Fatalf("Expected 2 camera assessments, got %d", len(cameraOnly))
	}
	for _, a := range cameraOnly {
		if a.Source != models.SourceCamera {
			t.Errorf("Expected source %q, got %q", models.SourceCamera, a.Source)
		}
	}
}

func TestAssessmentRepository_GetAll_Limit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		insertTestAssessment(t, repo, models.SourceCamera, 0.5, base.Add(time.Duration(i)*time.Minute))
	}

	limited, err := repo.GetAll(&models.AssessmentFilter{Limit: 2})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("Expected 2 assessments, got %d", len(limited))
	}
	if !limited[0].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("Expected the newest record first, got %v", limited[0].Timestamp)
	}
}

func TestAssessmentRepository_Total(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)

	total, err := repo.Total()
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 on empty database, got %d", total)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insertTestAssessment(t, repo, models.SourceCamera, 0.5, base)
	insertTestAssessment(t, repo, models.SourceUpload, 0.6, base.Add(time.Minute))

	total, err = repo.Total()
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2, got %d", total)
	}
}

func TestAssessmentRepository_Breakdown(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	records := []struct {
		assessment string
		confidence float64
	}{
		{models.AssessmentReady, 0.9},
		{models.AssessmentReady, 0.5},
		{models.AssessmentRotten, 0.8},
	}
	for i, rec := range records {
		_, err := repo.Insert(&models.Assessment{
			ImageURL:   "/static/uploads/test.jpg",
			Assessment: rec.assessment,
			Confidence: rec.confidence,
			Source:     models.SourceCamera,
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	breakdown, err := repo.Breakdown()
	if err != nil {
		t.Fatalf("Breakdown failed: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("Expected 2 breakdown rows, got %d", len(breakdown))
	}

	// Ordered by count descending, so the ready group comes first.
	ready := breakdown[0]
	if ready.Assessment != models.AssessmentReady {
		t.Fatalf("Expected %q first, got %q", models.AssessmentReady, ready.Assessment)
	}
	if ready.Count != 2 {
		t.Errorf("Expected count 2, got %d", ready.Count)
	}
	if ready.MaxConfidence != 0.9 || ready.MinConfidence != 0.5 {
		t.Errorf("Expected confidence range [0.5, 0.9], got [%f, %f]", ready.MinConfidence, ready.MaxConfidence)
	}
}

func TestAssessmentRepository_Timestamps_Ascending(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	insertTestAssessment(t, repo, models.SourceCamera, 0.5, base.Add(time.Minute))
	insertTestAssessment(t, repo, models.SourceCamera, 0.5, base)

	timestamps, err := repo.Timestamps()
	if err != nil {
		t.Fatalf("Timestamps failed: %v", err)
	}
	if len(timestamps) != 2 {
		t.Fatalf("Expected 2 timestamps, got %d", len(timestamps))
	}
	if timestamps[0].After(timestamps[1]) {
		t.Errorf("Expected ascending order, got %v before %v", timestamps[0], timestamps[1])
	}
}

func TestAssessmentRepository_DeleteAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	insertTestAssessment(t, repo, models.SourceCamera, 0.5, time.Now())

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	total, err := repo.Total()
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected empty table after DeleteAll, got %d rows", total)
	}
}
