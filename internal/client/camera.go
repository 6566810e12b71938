package client

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Ideal capture resolution requested from the device.
const (
	captureWidth  = 1280
	captureHeight = 720
)

// CameraSource reads frames from a capture device.
type CameraSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenCamera acquires the capture device at the ideal 1280x720. The
// device may deliver a different resolution; the sampler and renderer
// only ever work with whatever frame size actually arrives.
func OpenCamera(deviceID int) (*CameraSource, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device %d: %w", deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, captureWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, captureHeight)

	return &CameraSource{
		capture: capture,
		mat:     gocv.NewMat(),
	}, nil
}

// Read returns the current frame, or ErrNoFrame when the device has no
// data buffered yet.
func (c *CameraSource) Read() (image.Image, error) {
	if ok := c.capture.Read(&c.mat); !ok {
		return nil, ErrNoFrame
	}
	if c.mat.Empty() {
		return nil, ErrNoFrame
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device and frame buffer.
func (c *CameraSource) Close() error {
	c.mat.Close()
	return c.capture.Close()
}
