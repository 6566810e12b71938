package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"kaongserver/internal/logger"
	"kaongserver/internal/metrics"
	"kaongserver/internal/models"
	"kaongserver/internal/repository/sqlite"
	"kaongserver/internal/services/imagestore"
	"kaongserver/internal/services/stats"
)

// SaveAssessmentHandler accepts a multipart submission (image, assessment,
// confidence, source) from the client-side recorder and stores it
// unconditionally.
func SaveAssessmentHandler(store *imagestore.Store, repo *sqlite.AssessmentRepository, m *metrics.Metrics, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"success": false, "error": "Method not allowed"})
			return
		}

		for _, field := range []string{"assessment", "confidence", "source"} {
			if r.FormValue(field) == "" {
				logger.Warning("Missing required field: %s", field)
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Missing " + field})
				return
			}
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			logger.Warning("No image file in save_assessment request")
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "No image file provided"})
			return
		}
		defer file.Close()

		if header.Filename == "" {
			logger.Warning("Empty filename in save_assessment request")
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "No selected file"})
			return
		}

		imageData, err := store.Process(header.Filename, file)
		if err != nil {
			if errors.Is(err, imagestore.ErrValidation) {
				logger.Error("Image validation failed in save_assessment: %v", err)
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": err.Error()})
				return
			}
			logger.Error("Failed to process image in save_assessment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Internal server error"})
			return
		}

		confidence, err := strconv.ParseFloat(r.FormValue("confidence"), 64)
		if err != nil {
			logger.Error("Invalid confidence value in save_assessment: %v", err)
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid form data"})
			return
		}

		source := r.FormValue("source")

		filename, err := store.Save(imageData, source)
		if err != nil {
			m.SaveErrors.Add(1)
			logger.Error("Failed to save image: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to save image"})
			return
		}

		id, err := repo.Insert(&models.Assessment{
			ImageURL:   store.URL(filename),
			Assessment: r.FormValue("assessment"),
			Confidence: confidence,
			Source:     source,
		})
		if err != nil {
			m.SaveErrors.Add(1)
			logger.Error("Failed to save assessment to database: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Database save failed"})
			return
		}

		m.AssessmentsSaved.Add(1)
		logger.Info("Assessment saved with ID: %d", id)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "assessment_id": id})
	}
}

// GetAssessmentDataHandler returns assessment history, newest first.
// Optional query parameters: source, limit.
func GetAssessmentDataHandler(repo *sqlite.AssessmentRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &models.AssessmentFilter{
			Source: q.Get("source"),
			Limit:  atoiDefault(q.Get("limit"), 0),
		}

		assessments, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Failed to retrieve assessments: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to retrieve assessment data")
			return
		}

		if assessments == nil {
			assessments = []models.Assessment{}
		}

		logger.Info("Retrieved %d assessments (source: %q, limit: %d)", len(assessments), filter.Source, filter.Limit)
		writeJSON(w, http.StatusOK, assessments)
	}
}

// AssessmentStatsHandler returns aggregate statistics including the
// derived scan-session count.
func AssessmentStatsHandler(statsService *stats.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := statsService.Compute()
		if err != nil {
			logger.Error("Failed to compute assessment statistics: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to retrieve statistics")
			return
		}

		if result.Breakdown == nil {
			result.Breakdown = []models.AssessmentBreakdown{}
		}

		writeJSON(w, http.StatusOK, result)
	}
}
