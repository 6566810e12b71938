package handlers

import (
	"net/http"
	"time"

	"kaongserver/internal/logger"
	"kaongserver/internal/repository/sqlite"
)

// HealthHandler reports service and database status for monitoring.
func HealthHandler(repo *sqlite.AssessmentRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		database := "connected"

		if err := repo.Ping(); err != nil {
			logger.Error("Health check database ping failed: %v", err)
			status = "degraded"
			database = "disconnected"
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":    status,
			"database":  database,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
