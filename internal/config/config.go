package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Port                int
	UploadDir           string
	StaticDir           string
	DBPath              string
	LogDirectory        string
	ModelPath           string
	ModelConfigPath     string
	ConfidenceThreshold float64 // Minimum score for a detection to count as valid
	SaveConfidenceLevel float64 // Minimum score before an assessment is persisted automatically
	SampleIntervalMS    int     // Frame sampler tick interval
	JPEGQuality         int     // Encoding quality for sampled frames
	MaxUploadSizeMB     int64
	MaxImageWidth       int
	MaxImageHeight      int

	// Scanner client settings
	ServerURL string
	CameraID  int
}

func Load() *Config {
	return &Config{
		Port:                getEnvAsInt("PORT", 5000),
		UploadDir:           getEnv("UPLOAD_DIR", filepath.Join("static", "uploads")),
		StaticDir:           getEnv("STATIC_DIR", "static"),
		DBPath:              getEnv("DB_PATH", filepath.Join("data", "assessments.db")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join("models", "kaong_ripeness.pb")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", filepath.Join("models", "kaong_ripeness.pbtxt")),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.2),
		SaveConfidenceLevel: getEnvAsFloat("SAVE_CONFIDENCE_LEVEL", 0.8),
		SampleIntervalMS:    getEnvAsInt("SAMPLE_INTERVAL_MS", 200),
		JPEGQuality:         getEnvAsInt("JPEG_QUALITY", 80),
		MaxUploadSizeMB:     getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 10),
		MaxImageWidth:       getEnvAsInt("MAX_IMAGE_WIDTH", 1920),
		MaxImageHeight:      getEnvAsInt("MAX_IMAGE_HEIGHT", 1080),
		ServerURL:           getEnv("SERVER_URL", "http://localhost:5000"),
		CameraID:            getEnvAsInt("CAMERA_ID", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
