package models

import "encoding/json"

// Stream channel event names.
const (
	EventDetectVideoFrame = "detect_video_frame"
	EventDetectionResults = "detection_results"
	EventDetectionError   = "detection_error"
)

// StreamMessage is the envelope for every message on the stream channel.
type StreamMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// FramePayload carries one sampled video frame as a base64 data URL.
type FramePayload struct {
	ImageDataURL string `json:"image_data_url"`
}

// DetectionResultsPayload is the server's reply to a sampled frame.
type DetectionResultsPayload struct {
	Detections []Detection `json:"detections"`
}

// DetectionErrorPayload reports a server-side detection failure.
type DetectionErrorPayload struct {
	Error string `json:"error"`
}
