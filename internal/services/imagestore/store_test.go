package imagestore

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kaongserver/internal/config"
	"kaongserver/internal/logger"
)

func setupTestStore(t *testing.T) (*Store, string, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "imagestore_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	cfg := &config.Config{
		UploadDir:       filepath.Join(tempDir, "uploads"),
		LogDirectory:    filepath.Join(tempDir, "logs"),
		MaxUploadSizeMB: 1,
		MaxImageWidth:   100,
		MaxImageHeight:  100,
	}

	store, err := New(cfg, logger.New(cfg))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(tempDir)
	}

	return store, cfg.UploadDir, cleanup
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestProcess_RejectsDisallowedExtension(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Process("notes.txt", bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestProcess_RejectsEmptyFilename(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Process("", bytes.NewReader(encodeTestPNG(t, 10, 10)))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestProcess_RejectsOversizedUpload(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	// 1MB limit in the test config.
	big := bytes.Repeat([]byte{0xff}, 1024*1024+1)
	_, err := store.Process("big.jpg", bytes.NewReader(big))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestProcess_RejectsUndecodableData(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Process("fake.png", bytes.NewReader([]byte("definitely not a png")))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestProcess_ReencodesToJPEG(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	data, err := store.Process("small.png", bytes.NewReader(encodeTestPNG(t, 50, 40)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected JPEG output, decode failed: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 40 {
		t.Errorf("Expected 50x40 output, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProcess_DownscalesOversizedImage(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	// 400x200 against 100x100 bounds scales by 0.25 on the long side.
	data, err := store.Process("wide.png", bytes.NewReader(encodeTestPNG(t, 400, 200)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50 output, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestSave(t *testing.T) {
	store, uploadDir, cleanup := setupTestStore(t)
	defer cleanup()

	filename, err := store.Save([]byte("jpeg bytes"), "upload")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !strings.HasPrefix(filename, "kaong_upload_") || !strings.HasSuffix(filename, ".jpg") {
		t.Errorf("Unexpected filename format: %s", filename)
	}

	if _, err := os.Stat(filepath.Join(uploadDir, filename)); err != nil {
		t.Errorf("Expected saved file on disk: %v", err)
	}

	source, _, err := ParseFilename(filename)
	if err != nil {
		t.Fatalf("ParseFilename failed on generated name: %v", err)
	}
	if source != "upload" {
		t.Errorf("Expected source upload, got %s", source)
	}
}

func TestURL(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	url := store.URL("kaong_camera_20260801_120000_abcd1234.jpg")
	expected := "/static/uploads/kaong_camera_20260801_120000_abcd1234.jpg"
	if url != expected {
		t.Errorf("Expected %s, got %s", expected, url)
	}
}

func TestParseFilename(t *testing.T) {
	source, timestamp, err := ParseFilename("kaong_camera_20260801_120530_abcd1234.jpg")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if source != "camera" {
		t.Errorf("Expected source camera, got %s", source)
	}

	expected := time.Date(2026, 8, 1, 12, 5, 30, 0, time.UTC)
	if !timestamp.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, timestamp)
	}
}

func TestParseFilename_Invalid(t *testing.T) {
	invalid := []string{
		"photo.jpg",
		"kaong_camera.jpg",
		"other_camera_20260801_120530_abcd1234.jpg",
		"kaong_camera_notadate_120530_abcd1234.jpg",
	}

	for _, name := range invalid {
		if _, _, err := ParseFilename(name); err == nil {
			t.Errorf("Expected error for %s, got nil", name)
		}
	}
}
