package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"kaongserver/internal/models"
)

// Detector is the inference boundary: everything behind it (model,
// runtime, thresholds) is the detector service's concern.
type Detector interface {
	Detect(imageBytes []byte) ([]models.Detection, bool, error)
}

// writeJSON encodes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends a {"error": ...} payload.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// atoiDefault converts string to int or returns a default when conversion
// fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
