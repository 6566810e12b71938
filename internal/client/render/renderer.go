package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"kaongserver/internal/models"
)

// LabelScoreThreshold is the cosmetic cutoff below which no text label is
// drawn next to a box. It is unrelated to the server-side confidence
// thresholds that gate detection and persistence.
const LabelScoreThreshold = 0.1

const strokeWidth = 2

// Canvas is the overlay surface detections are drawn onto. It mirrors the
// live video element: every render first redraws the current frame, then
// the boxes, so frame and boxes stay visually in sync even though results
// arrive asynchronously.
type Canvas struct {
	img    *image.RGBA
	width  int
	height int
}

// NewCanvas creates a canvas of the given dimensions.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		width:  width,
		height: height,
	}
}

// Resize changes the canvas dimensions, dropping previous content.
func (c *Canvas) Resize(width, height int) {
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	c.width = width
	c.height = height
}

// Size returns the current canvas dimensions.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Image exposes the rendered surface.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Render clears the canvas, redraws the frame scaled to the canvas, then
// overlays each detection. Relative boxes are resolved against the
// *current* canvas dimensions, so the overlay stays correct after a
// resize; absolute boxes are used as-is when no relative box is present.
// A result with zero detections still redraws the bare frame, clearing any
// stale boxes from a previous result.
func (c *Canvas) Render(frame image.Image, detections []models.Detection) {
	if frame != nil {
		draw.ApproxBiLinear.Scale(c.img, c.img.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(c.img, c.img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	}

	for _, det := range detections {
		rect, ok := det.PixelRect(c.width, c.height)
		if !ok {
			continue
		}

		col := colorFor(det.Label)
		c.strokeRect(rect, col)

		if shouldDrawLabel(det.Score) {
			c.drawLabel(formatLabel(det), rect, col)
		}
	}
}

// strokeRect draws an unfilled rectangle outline.
func (c *Canvas) strokeRect(rect image.Rectangle, col color.RGBA) {
	for w := 0; w < strokeWidth; w++ {
		r := rect.Inset(w)
		for x := r.Min.X; x < r.Max.X; x++ {
			c.img.SetRGBA(x, r.Min.Y, col)
			c.img.SetRGBA(x, r.Max.Y-1, col)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			c.img.SetRGBA(r.Min.X, y, col)
			c.img.SetRGBA(r.Max.X-1, y, col)
		}
	}
}

// drawLabel draws the label text just above the box, clamped onto the canvas.
func (c *Canvas) drawLabel(text string, rect image.Rectangle, col color.RGBA) {
	face := basicfont.Face7x13
	x := rect.Min.X
	y := rect.Min.Y - 4
	if y < face.Ascent {
		y = rect.Min.Y + face.Ascent + 2
	}

	drawer := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// shouldDrawLabel reports whether a score clears the display threshold.
func shouldDrawLabel(score float64) bool {
	return score > LabelScoreThreshold
}

// formatLabel renders "Label (93.2%)".
func formatLabel(det models.Detection) string {
	return fmt.Sprintf("%s (%.1f%%)", det.Label, det.Score*100)
}

// colorFor returns the per-label stroke color.
func colorFor(label models.Label) color.RGBA {
	switch label {
	case models.LabelRipe:
		return color.RGBA{R: 0, G: 200, B: 0, A: 255}
	case models.LabelUnripe:
		return color.RGBA{R: 255, G: 165, B: 0, A: 255}
	case models.LabelRotten:
		return color.RGBA{R: 220, G: 0, B: 0, A: 255}
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}
