package handlers

import (
	"errors"
	"net/http"

	"kaongserver/internal/logger"
	"kaongserver/internal/metrics"
	"kaongserver/internal/models"
	"kaongserver/internal/repository/sqlite"
	"kaongserver/internal/services/imagestore"
)

// DetectFrameHandler handles the request/response detection path: one
// uploaded image in, one detection result out. Assessments are persisted
// server-side when any detection clears the confidence threshold; a
// persistence failure never fails the detection response.
func DetectFrameHandler(det Detector, store *imagestore.Store, repo *sqlite.AssessmentRepository, m *metrics.Metrics, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			logger.Warning("No image file provided in request")
			writeError(w, http.StatusBadRequest, "No image file provided")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			logger.Warning("Empty filename in request")
			writeError(w, http.StatusBadRequest, "No selected file")
			return
		}

		logger.Info("Processing upload: %s, type: %s", header.Filename, header.Header.Get("Content-Type"))

		imageData, err := store.Process(header.Filename, file)
		if err != nil {
			if errors.Is(err, imagestore.ErrValidation) {
				logger.Error("Image validation failed: %v", err)
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("Failed to process upload: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error occurred")
			return
		}

		m.DetectionsRun.Add(1)
		detections, hasValid, err := det.Detect(imageData)
		if err != nil {
			m.DetectionErrors.Add(1)
			logger.Error("Detection failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error occurred")
			return
		}

		if hasValid && len(detections) > 0 {
			saveAssessment(detections[0], imageData, models.SourceUpload, store, repo, m, logger)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"detections": detections})
	}
}

// saveAssessment persists an image and its representative detection.
// Recording is best-effort: failures are logged, never propagated.
func saveAssessment(det models.Detection, imageData []byte, source string, store *imagestore.Store, repo *sqlite.AssessmentRepository, m *metrics.Metrics, logger *logger.Logger) {
	filename, err := store.Save(imageData, source)
	if err != nil {
		m.SaveErrors.Add(1)
		logger.Error("Failed to save image: %v", err)
		return
	}

	id, err := repo.Insert(&models.Assessment{
		ImageURL:   store.URL(filename),
		Assessment: det.Assessment,
		Confidence: det.Score,
		Source:     source,
	})
	if err != nil {
		m.SaveErrors.Add(1)
		logger.Error("Failed to save assessment to database: %v", err)
		return
	}

	m.AssessmentsSaved.Add(1)
	logger.Info("Saved assessment %d for %s: %s", id, source, filename)
}
