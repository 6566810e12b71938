package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"kaongserver/internal/config"
	"kaongserver/internal/handlers"
	"kaongserver/internal/logger"
	"kaongserver/internal/metrics"
	"kaongserver/internal/repository/sqlite"
	"kaongserver/internal/services/imagestore"
	"kaongserver/internal/services/stats"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file
// exists; otherwise 404. The index, detect and data pages map this way.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, path+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the API endpoints, the stream channel, static file
// serving and the page handler.
func SetupRoutes(det handlers.Detector, store *imagestore.Store, repo *sqlite.AssessmentRepository, statsService *stats.Service, m *metrics.Metrics, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files, including saved assessment images
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Detection endpoints
	mux.HandleFunc("/detect_frame", handlers.DetectFrameHandler(det, store, repo, m, logger))
	mux.HandleFunc("/stream", handlers.StreamHandler(det, store, repo, m, logger))

	// Assessment endpoints
	mux.HandleFunc("/save_assessment", handlers.SaveAssessmentHandler(store, repo, m, logger))
	mux.HandleFunc("/get_assessment_data", handlers.GetAssessmentDataHandler(repo, logger))
	mux.HandleFunc("/assessment_stats", handlers.AssessmentStatsHandler(statsService, logger))

	// Monitoring
	mux.HandleFunc("/health", handlers.HealthHandler(repo, logger))
	mux.Handle("/metrics", m.Handler())

	// Automatic HTML handler mapping, for example: /detect -> static/detect.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	return mux
}
