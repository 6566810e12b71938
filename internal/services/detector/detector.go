package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"kaongserver/internal/config"
	"kaongserver/internal/logger"
	"kaongserver/internal/models"
)

const inputSize = 300

// Service runs the ripeness detection network on encoded images.
type Service struct {
	net        gocv.Net
	modelPath  string
	configPath string
	threshold  float64
	logger     *logger.Logger
	mu         sync.Mutex
}

// New creates the detection service and loads the network. A missing model
// is a warning, not a fatal error; Detect reports it per call.
func New(config *config.Config, logger *logger.Logger) *Service {
	service := &Service{
		modelPath:  config.ModelPath,
		configPath: config.ModelConfigPath,
		threshold:  config.ConfidenceThreshold,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the network from the model and config files.
func (s *Service) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)

	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized successfully")
	return nil
}

// Detect runs inference on an encoded image and returns detections above
// the confidence threshold, with both absolute and relative boxes. When
// nothing clears the threshold a single default detection is returned and
// the second result is false, so callers know not to persist it.
func (s *Service) Detect(imageBytes []byte) ([]models.Detection, bool, error) {
	if s.net.Empty() {
		return nil, false, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, false, fmt.Errorf("decoded image is empty")
	}

	width := mat.Cols()
	height := mat.Rows()

	s.mu.Lock()
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(inputSize, inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	blob.Close()
	s.mu.Unlock()
	defer output.Close()

	var detections []models.Detection

	// Each output row is [batch, classID, confidence, x1, y1, x2, y2]
	// with coordinates already normalized to [0,1].
	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()
	for i := 0; i < outputReshaped.Rows(); i++ {
		score := float64(outputReshaped.GetFloatAt(i, 2))
		if score <= s.threshold {
			continue
		}

		classID := int(outputReshaped.GetFloatAt(i, 1))
		label := models.LabelForClass(classID)

		relative := models.Rect{
			X1: float64(outputReshaped.GetFloatAt(i, 3)),
			Y1: float64(outputReshaped.GetFloatAt(i, 4)),
			X2: float64(outputReshaped.GetFloatAt(i, 5)),
			Y2: float64(outputReshaped.GetFloatAt(i, 6)),
		}
		absolute := models.Rect{
			X1: relative.X1 * float64(width),
			Y1: relative.Y1 * float64(height),
			X2: relative.X2 * float64(width),
			Y2: relative.Y2 * float64(height),
		}

		detections = append(detections, models.Detection{
			Label:       label,
			Score:       score,
			Box:         &absolute,
			BoxRelative: &relative,
			Assessment:  label.Assessment(),
			ImageWidth:  width,
			ImageHeight: height,
		})
	}

	if len(detections) == 0 {
		s.logger.Info("No detections above threshold %.2f, returning default", s.threshold)
		return []models.Detection{models.DefaultDetection(width, height)}, false, nil
	}

	s.logger.Info("Detection complete: %d objects found", len(detections))
	return detections, true, nil
}

// Close releases the network.
func (s *Service) Close() error {
	if s.net.Empty() {
		return nil
	}
	return s.net.Close()
}
