package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"kaongserver/internal/models"
	"kaongserver/internal/repository/sqlite"
	"kaongserver/internal/services/imagestore"
)

// Backfills assessment rows for saved images that exist on disk but are
// missing from the database, e.g. after a database reset. Label and
// confidence cannot be recovered from a filename, so rows are inserted
// with an unknown assessment and zero confidence.
func main() {
	uploadsDir := flag.String("uploads", "static/uploads", "Directory containing saved images")
	dbPath := flag.String("db", "data/assessments.db", "Database path")
	flag.Parse()

	fmt.Printf("Backfilling assessments from %s into %s\n", *uploadsDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewAssessmentRepository(db)

	existing, err := repo.GetAll(nil)
	if err != nil {
		log.Fatalf("Failed to read existing assessments: %v", err)
	}
	known := make(map[string]bool, len(existing))
	for _, a := range existing {
		known[filepath.Base(a.ImageURL)] = true
	}

	files, err := os.ReadDir(*uploadsDir)
	if err != nil {
		log.Fatalf("Failed to read uploads directory: %v", err)
	}

	inserted := 0
	skipped := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}
		if known[file.Name()] {
			continue
		}

		source, timestamp, err := imagestore.ParseFilename(file.Name())
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if _, err := repo.Insert(&models.Assessment{
			ImageURL:   "/static/uploads/" + file.Name(),
			Assessment: models.AssessmentUnknown,
			Confidence: 0,
			Source:     source,
			Timestamp:  timestamp,
		}); err != nil {
			log.Printf("Failed to insert %s: %v", file.Name(), err)
			skipped++
			continue
		}
		inserted++
	}

	fmt.Printf("Backfilled %d assessments\n", inserted)
	if skipped > 0 {
		fmt.Printf("Skipped %d files\n", skipped)
	}

	total, err := repo.Total()
	if err == nil {
		fmt.Printf("Database now holds %d assessments\n", total)
	}
}
