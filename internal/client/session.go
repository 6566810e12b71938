package client

import (
	"errors"
	"fmt"
	"image"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kaongserver/internal/logger"
	"kaongserver/internal/models"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	}
	return "unknown"
}

// ErrNoFrame is returned by a FrameSource when no frame is buffered yet.
// The sampler treats it as a silent no-op and waits for the next tick.
var ErrNoFrame = errors.New("no frame available")

// ErrSessionOpen is returned by Open when the session is not idle.
var ErrSessionOpen = errors.New("session already open")

// ErrSessionClosed is returned by Open when a Close arrives while the
// camera and stream are still being acquired.
var ErrSessionClosed = errors.New("session closed while opening")

// FrameSource yields video frames. The production implementation wraps a
// camera; tests substitute fakes.
type FrameSource interface {
	Read() (image.Image, error)
	Close() error
}

// StreamConn abstracts the websocket stream to the detection backend.
type StreamConn interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

// ResultHandler consumes one detection result together with the frame most
// recently captured, so the renderer can redraw frame and boxes together.
type ResultHandler func(frame image.Image, detections []models.Detection)

// Config holds the session's wiring.
type Config struct {
	ServerURL   string        // base URL of the detection server
	CameraID    int           // camera device index
	Interval    time.Duration // sampler tick interval
	JPEGQuality int           // frame encoding quality
	OnResult    ResultHandler // invoked per detection_results event

	// OpenSource and Dial override resource acquisition; nil means the
	// real camera and a websocket dial to ServerURL.
	OpenSource func() (FrameSource, error)
	Dial       func() (StreamConn, error)
}

// Session owns one camera stream plus one streaming connection. Both live
// only between Open and Close and every handle is nulled out on Close, so
// a stale reference can never be reused across cycles.
type Session struct {
	mu      sync.Mutex
	state   State
	started bool
	source  FrameSource
	conn    StreamConn
	ticker  *time.Ticker
	done    chan struct{}

	lastFrame image.Image

	interval   time.Duration
	quality    int
	openSource func() (FrameSource, error)
	dial       func() (StreamConn, error)
	onResult   ResultHandler
	logger     *logger.Logger
}

// NewSession creates an unopened session.
func NewSession(cfg Config, log *logger.Logger) *Session {
	s := &Session{
		state:      StateIdle,
		interval:   cfg.Interval,
		quality:    cfg.JPEGQuality,
		openSource: cfg.OpenSource,
		dial:       cfg.Dial,
		onResult:   cfg.OnResult,
		logger:     log,
	}

	if s.interval <= 0 {
		s.interval = 200 * time.Millisecond
	}
	if s.quality <= 0 {
		s.quality = 80
	}
	if s.openSource == nil {
		s.openSource = func() (FrameSource, error) {
			return OpenCamera(cfg.CameraID)
		}
	}
	if s.dial == nil {
		s.dial = func() (StreamConn, error) {
			return dialStream(cfg.ServerURL)
		}
	}

	return s
}

// Open acquires the camera, dials the stream and starts the sampler.
// Acquisition failures restore the idle state and are both returned and
// logged; a half-open session never survives.
func (s *Session) Open() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionOpen
	}
	s.state = StateOpening
	s.mu.Unlock()

	source, err := s.openSource()
	if err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.logger.Error("Failed to open camera: %v", err)
		return fmt.Errorf("failed to open camera: %w", err)
	}

	conn, err := s.dial()
	if err != nil {
		source.Close()
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.logger.Error("Failed to connect to detection stream: %v", err)
		return fmt.Errorf("failed to connect to detection stream: %w", err)
	}

	s.mu.Lock()
	if s.state != StateOpening {
		// A Close landed while resources were being acquired; honor it
		// instead of resurrecting the session.
		s.mu.Unlock()
		conn.Close()
		source.Close()
		return ErrSessionClosed
	}
	s.source = source
	s.conn = conn
	done := make(chan struct{})
	s.done = done
	s.started = true
	s.state = StateStreaming
	s.mu.Unlock()

	go s.readPump(conn)
	go s.sample(done)

	s.logger.Info("Session streaming (interval %s)", s.interval)
	return nil
}

// Close tears the session down in reverse acquisition order: sampler,
// stream, camera. It is idempotent and safe to call without a prior Open.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false

	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.source != nil {
		s.source.Close()
		s.source = nil
	}

	s.lastFrame = nil
	s.state = StateIdle
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Started reports whether the sampler should keep running.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// readPump consumes server events until the connection dies. Results are
// handed to the configured handler together with the latest captured
// frame; replies may arrive out of order and simply overwrite each other.
func (s *Session) readPump(conn StreamConn) {
	for {
		var msg models.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Info("Stream closed: %v", err)
			return
		}

		switch msg.Event {
		case models.EventDetectionResults:
			var payload models.DetectionResultsPayload
			if err := unmarshalPayload(msg.Data, &payload); err != nil {
				s.logger.Error("Failed to decode detection results: %v", err)
				continue
			}
			s.handleResult(payload.Detections)

		case models.EventDetectionError:
			var payload models.DetectionErrorPayload
			if err := unmarshalPayload(msg.Data, &payload); err != nil {
				s.logger.Error("Failed to decode detection error: %v", err)
				continue
			}
			s.logger.Error("Detection error from server: %s", payload.Error)

		default:
			s.logger.Warning("Unknown stream event: %s", msg.Event)
		}
	}
}

// handleResult forwards detections and the latest frame to the handler.
func (s *Session) handleResult(detections []models.Detection) {
	s.mu.Lock()
	frame := s.lastFrame
	handler := s.onResult
	s.mu.Unlock()

	if handler != nil {
		handler(frame, detections)
	}
}

// dialStream converts the server base URL to a websocket URL and dials it.
func dialStream(serverURL string) (StreamConn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/stream"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
