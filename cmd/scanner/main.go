package main

import (
	"bytes"
	"flag"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"kaongserver/internal/client"
	"kaongserver/internal/client/render"
	"kaongserver/internal/config"
	"kaongserver/internal/logger"
	"kaongserver/internal/models"
)

const (
	canvasWidth  = 1280
	canvasHeight = 720
)

func main() {
	imagePath := flag.String("image", "", "assess a single image file instead of streaming from the camera")
	outPath := flag.String("out", "scan.png", "where the rendered overlay is written in single-image mode")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()
	appLogger := logger.New(cfg)

	if *imagePath != "" {
		runSingleImage(cfg, appLogger, *imagePath, *outPath)
		return
	}
	runStream(cfg, appLogger)
}

// runStream drives the live loop: open the camera, stream sampled frames
// to the server, draw each result batch onto the canvas, and record
// high-confidence assessments until interrupted.
func runStream(cfg *config.Config, appLogger *logger.Logger) {
	canvas := render.NewCanvas(canvasWidth, canvasHeight)
	recorder := client.NewRecorder(cfg.ServerURL, appLogger)

	session := client.NewSession(client.Config{
		ServerURL:   cfg.ServerURL,
		CameraID:    cfg.CameraID,
		Interval:    time.Duration(cfg.SampleIntervalMS) * time.Millisecond,
		JPEGQuality: cfg.JPEGQuality,
		OnResult: func(frame image.Image, detections []models.Detection) {
			canvas.Render(frame, detections)

			if len(detections) == 0 {
				return
			}
			first := detections[0]
			if first.Score < cfg.SaveConfidenceLevel {
				return
			}
			data, err := encodeJPEG(frame, cfg.JPEGQuality)
			if err != nil {
				appLogger.Error("Failed to encode frame for recording: %v", err)
				return
			}
			recorder.RecordAsync(data, first, models.SourceCamera)
		},
	}, appLogger)

	if err := session.Open(); err != nil {
		appLogger.Error("Failed to open scan session: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Streaming camera %d to %s every %dms", cfg.CameraID, cfg.ServerURL, cfg.SampleIntervalMS)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	session.Close()
	appLogger.Info("Scanner stopped")
}

// runSingleImage runs the on-demand pipeline for one file and writes the
// rendered preview to disk.
func runSingleImage(cfg *config.Config, appLogger *logger.Logger, path, outPath string) {
	data, err := os.ReadFile(path)
	if err != nil {
		appLogger.Error("Failed to read %s: %v", path, err)
		os.Exit(1)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	uploader := client.NewUploader(cfg.ServerURL, appLogger)
	detections, err := uploader.Detect(filepath.Base(path), contentType, data)
	if err != nil {
		appLogger.Error("Assessment failed for %s: %v", path, err)
		os.Exit(1)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		appLogger.Error("Failed to decode %s: %v", path, err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	preview := render.FitPreview(bounds.Dx(), bounds.Dy(), canvasWidth, canvasHeight)
	canvas := render.NewCanvas(canvasWidth, canvasHeight)
	canvas.RenderPreview(img, detections, preview)

	out, err := os.Create(outPath)
	if err != nil {
		appLogger.Error("Failed to create %s: %v", outPath, err)
		os.Exit(1)
	}
	defer out.Close()

	if err := png.Encode(out, canvas.Image()); err != nil {
		appLogger.Error("Failed to write %s: %v", outPath, err)
		os.Exit(1)
	}

	for _, det := range detections {
		appLogger.Info("%s: %s (%.1f%%)", path, det.Assessment, det.Score*100)
	}
	appLogger.Info("Wrote preview to %s", outPath)
}

func encodeJPEG(frame image.Image, quality int) ([]byte, error) {
	if frame == nil {
		return nil, client.ErrNoFrame
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
