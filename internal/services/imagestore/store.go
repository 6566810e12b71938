package imagestore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"kaongserver/internal/config"
	"kaongserver/internal/logger"
)

// ErrValidation marks user-correctable image errors (wrong type, too
// large, undecodable). Handlers translate these into 400 responses.
var ErrValidation = errors.New("image validation failed")

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

const savedImageQuality = 95

// Store validates uploads and persists images under the upload directory.
type Store struct {
	dir       string
	maxBytes  int64
	maxWidth  int
	maxHeight int
	quality   int
	logger    *logger.Logger
}

// New creates a Store and ensures the upload directory exists.
func New(cfg *config.Config, logger *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Store{
		dir:       cfg.UploadDir,
		maxBytes:  cfg.MaxUploadSizeMB * 1024 * 1024,
		maxWidth:  cfg.MaxImageWidth,
		maxHeight: cfg.MaxImageHeight,
		quality:   savedImageQuality,
		logger:    logger,
	}, nil
}

// Process validates an uploaded file, decodes it, downscales oversized
// images while preserving aspect ratio, and re-encodes to JPEG. The
// returned bytes are what detection runs on and what gets saved.
func (s *Store) Process(filename string, r io.Reader) ([]byte, error) {
	if !isAllowedFile(filename) {
		return nil, fmt.Errorf("%w: file type not allowed: %s", ErrValidation, filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds maximum size of %d bytes", ErrValidation, s.maxBytes)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode image: %v", ErrValidation, err)
	}

	img = s.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// downscale shrinks images above the configured bounds, keeping aspect ratio.
func (s *Store) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= s.maxWidth && height <= s.maxHeight {
		return img
	}

	ratio := math.Min(float64(s.maxWidth)/float64(width), float64(s.maxHeight)/float64(height))
	newWidth := int(float64(width) * ratio)
	newHeight := int(float64(height) * ratio)

	s.logger.Info("Resizing image from %dx%d to %dx%d", width, height, newWidth, newHeight)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// Save writes JPEG data to disk under a unique name and returns the filename.
func (s *Store) Save(data []byte, source string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("kaong_%s_%s_%s.jpg", source, timestamp, uuid.NewString()[:8])
	fullpath := filepath.Join(s.dir, filename)

	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image %s: %w", filename, err)
	}

	return filename, nil
}

// URL returns the public URL for a saved image.
func (s *Store) URL(filename string) string {
	return "/static/uploads/" + filename
}

// ParseFilename extracts source and timestamp from a saved image name of
// the form kaong_{source}_{date}_{time}_{uuid}.jpg.
func ParseFilename(filename string) (source string, timestamp time.Time, err error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(base, "_")

	if len(parts) != 5 || parts[0] != "kaong" {
		return "", time.Time{}, fmt.Errorf("invalid image filename format: %s", filename)
	}

	timestamp, err = time.Parse("20060102_150405", parts[2]+"_"+parts[3])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return parts[1], timestamp, nil
}

// isAllowedFile checks the file extension against the allow list.
func isAllowedFile(filename string) bool {
	if filename == "" {
		return false
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}
