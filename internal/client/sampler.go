package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"kaongserver/internal/models"
)

// sample is the frame sampler loop: on every tick, capture the current
// frame, encode it and ship it over the open stream. Sends are
// fire-and-forget; the sampler never waits for a reply, so multiple
// requests may be in flight at once.
func (s *Session) sample(done <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.mu.Lock()
	s.ticker = ticker
	s.mu.Unlock()

	for {
		select {
		case <-done:
			// Close signalled; a stopped ticker never fires again, so the
			// loop cannot rely on a tick to notice.
			return
		case <-ticker.C:
			if !s.tick() {
				// Session is no longer live: cancel our own timer instead
				// of firing into a dead session.
				return
			}
		}
	}
}

// tick performs one sampling step. It returns false only when the session
// has stopped, which tells the loop to self-cancel. Every other degenerate
// condition (no frame buffered, connection gone) is a silent no-op: the
// sampler never throws and never queues.
func (s *Session) tick() bool {
	s.mu.Lock()
	started := s.started
	conn := s.conn
	source := s.source
	s.mu.Unlock()

	if !started {
		return false
	}
	if conn == nil || source == nil {
		return true
	}

	frame, err := source.Read()
	if err != nil || frame == nil {
		// No data yet; wait for the next tick.
		return true
	}

	s.mu.Lock()
	s.lastFrame = frame
	s.mu.Unlock()

	dataURL, err := encodeFrame(frame, s.quality)
	if err != nil {
		s.logger.Error("Failed to encode frame: %v", err)
		return true
	}

	payload, err := json.Marshal(models.FramePayload{ImageDataURL: dataURL})
	if err != nil {
		s.logger.Error("Failed to marshal frame payload: %v", err)
		return true
	}

	if err := conn.WriteJSON(models.StreamMessage{Event: models.EventDetectVideoFrame, Data: payload}); err != nil {
		// Transport errors are logged only; the self-cancellation above is
		// the single termination path once the session stops.
		s.logger.Error("Failed to send frame: %v", err)
	}

	return true
}

// encodeFrame compresses a frame to JPEG and wraps it in a data URL.
func encodeFrame(frame image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("jpeg encode failed: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// unmarshalPayload decodes an event payload.
func unmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(data, v)
}
