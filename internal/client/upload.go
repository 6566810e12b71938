package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"kaongserver/internal/logger"
	"kaongserver/internal/models"
)

// ErrNotImage is returned when a selected file is not an image. The file
// is rejected locally and no request is made.
var ErrNotImage = errors.New("selected file is not an image")

// Uploader runs the on-demand pipeline for static images: validate the
// file, post it for detection, and hand the detections back for preview
// rendering.
type Uploader struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewUploader creates an uploader targeting the given server base URL.
func NewUploader(baseURL string, log *logger.Logger) *Uploader {
	return &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  log,
	}
}

type detectResponse struct {
	Detections []models.Detection `json:"detections"`
	Error      string             `json:"error"`
}

// Detect validates the file's MIME type and posts it to the detection
// endpoint. Non-image files fail with ErrNotImage before any network
// traffic happens.
func (u *Uploader) Detect(filename, contentType string, data []byte) ([]models.Detection, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, u.baseURL+"/detect_frame", body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting image: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading detection response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The body may not be JSON at all (a proxy error page, say); the
		// status is the authoritative signal.
		var failure detectResponse
		if err := json.Unmarshal(payload, &failure); err == nil && failure.Error != "" {
			return nil, fmt.Errorf("detection failed: %s", failure.Error)
		}
		return nil, fmt.Errorf("detection failed: status %d", resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decoding detection response: %w", err)
	}

	u.logger.Info("Upload %s assessed: %d detections", filename, len(decoded.Detections))
	return decoded.Detections, nil
}
