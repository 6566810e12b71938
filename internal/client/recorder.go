package client

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"kaongserver/internal/logger"
	"kaongserver/internal/models"
)

// Recorder posts finished assessments to the server. Recording is strictly
// best-effort: a failed save is logged and the caller carries on, so a
// flaky network never interrupts the scanning loop.
type Recorder struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewRecorder creates a recorder targeting the given server base URL.
func NewRecorder(baseURL string, log *logger.Logger) *Recorder {
	return &Recorder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  log,
	}
}

// RecordAsync dispatches Record on its own goroutine, so a slow or hung
// save can never stall the caller's render loop.
func (r *Recorder) RecordAsync(imageData []byte, det models.Detection, source string) {
	go r.Record(imageData, det, source)
}

// Record sends one assessment with its source image. It never returns an
// error; all failures are logged and swallowed.
func (r *Recorder) Record(imageData []byte, det models.Detection, source string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "assessment.jpg")
	if err != nil {
		r.logger.Error("Recording assessment: %v", err)
		return
	}
	if _, err := part.Write(imageData); err != nil {
		r.logger.Error("Recording assessment: %v", err)
		return
	}

	fields := map[string]string{
		"assessment": det.Assessment,
		"confidence": fmt.Sprintf("%.4f", det.Score),
		"source":     source,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			r.logger.Error("Recording assessment: %v", err)
			return
		}
	}
	if err := writer.Close(); err != nil {
		r.logger.Error("Recording assessment: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, r.baseURL+"/save_assessment", body)
	if err != nil {
		r.logger.Error("Recording assessment: %v", err)
		return
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Recording assessment: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warning("Assessment save rejected with status %d", resp.StatusCode)
	}
}
