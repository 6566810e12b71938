package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"kaongserver/internal/logger"
	"kaongserver/internal/metrics"
	"kaongserver/internal/models"
	"kaongserver/internal/repository/sqlite"
	"kaongserver/internal/services/imagestore"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamReadTimeout = 60 * time.Second

// StreamHandler serves the realtime detection channel. Each
// detect_video_frame message is answered with detection_results or
// detection_error; no error in the detection or persistence path tears
// down the connection.
func StreamHandler(det Detector, store *imagestore.Store, repo *sqlite.AssessmentRepository, m *metrics.Metrics, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		connection.SetReadDeadline(time.Now().Add(streamReadTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(streamReadTimeout))
			return nil
		})

		m.StreamClients.Add(1)
		m.TotalClients.Add(1)
		defer func() {
			m.StreamClients.Add(^uint64(0))
		}()

		logger.Info("Stream client connected: %s", r.RemoteAddr)

		for {
			var msg models.StreamMessage
			if err := connection.ReadJSON(&msg); err != nil {
				logger.Info("Stream client disconnected: %v", err)
				return
			}
			connection.SetReadDeadline(time.Now().Add(streamReadTimeout))

			switch msg.Event {
			case models.EventDetectVideoFrame:
				handleVideoFrame(connection, msg.Data, det, store, repo, m, logger)
			default:
				logger.Warning("Unknown stream event: %s", msg.Event)
			}
		}
	}
}

// handleVideoFrame runs detection on one sampled frame and replies with
// the result. Out-of-order replies are possible when multiple frames are
// in flight; the client renderer overwrites, last message wins.
func handleVideoFrame(conn *websocket.Conn, data json.RawMessage, det Detector, store *imagestore.Store, repo *sqlite.AssessmentRepository, m *metrics.Metrics, logger *logger.Logger) {
	m.FramesReceived.Add(1)

	var payload models.FramePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ImageDataURL == "" {
		logger.Error("No image_data_url provided in stream message")
		writeEvent(conn, models.EventDetectionError, map[string]string{"error": "No image data provided"}, logger)
		return
	}

	imageBytes, err := decodeDataURL(payload.ImageDataURL)
	if err != nil {
		logger.Error("Failed to decode frame data URL: %v", err)
		writeEvent(conn, models.EventDetectionError, map[string]string{"error": "Invalid image data"}, logger)
		return
	}

	m.DetectionsRun.Add(1)
	detections, hasValid, err := det.Detect(imageBytes)
	if err != nil {
		m.DetectionErrors.Add(1)
		logger.Error("Stream detection failed: %v", err)
		writeEvent(conn, models.EventDetectionError, map[string]string{"error": "Internal server error occurred"}, logger)
		return
	}

	if hasValid && len(detections) > 0 {
		saveAssessment(detections[0], imageBytes, models.SourceCamera, store, repo, m, logger)
	}

	writeEvent(conn, models.EventDetectionResults, map[string]interface{}{"detections": detections}, logger)
}

// writeEvent sends one enveloped event to the client.
func writeEvent(conn *websocket.Conn, event string, data interface{}, logger *logger.Logger) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to marshal %s payload: %v", event, err)
		return
	}
	if err := conn.WriteJSON(models.StreamMessage{Event: event, Data: payload}); err != nil {
		logger.Error("Failed to write %s event: %v", event, err)
	}
}

// decodeDataURL extracts the raw bytes from a base64 data URL.
func decodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed data URL")
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return decoded, nil
}
