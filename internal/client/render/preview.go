package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"kaongserver/internal/models"
)

// Preview describes how an uploaded image maps onto its container: the
// image is scaled by the smaller of the two axis ratios and centered, so
// aspect ratio is preserved.
type Preview struct {
	ImageWidth  int
	ImageHeight int
	Scale       float64
	OffsetX     float64
	OffsetY     float64
}

// FitPreview computes the scale and centering offsets for an image inside
// a container.
func FitPreview(imageWidth, imageHeight, containerWidth, containerHeight int) Preview {
	scale := math.Min(
		float64(containerWidth)/float64(imageWidth),
		float64(containerHeight)/float64(imageHeight),
	)

	return Preview{
		ImageWidth:  imageWidth,
		ImageHeight: imageHeight,
		Scale:       scale,
		OffsetX:     (float64(containerWidth) - float64(imageWidth)*scale) / 2,
		OffsetY:     (float64(containerHeight) - float64(imageHeight)*scale) / 2,
	}
}

// MapRect resolves a detection's rectangle through the preview's scale and
// offset. The coordinate policy matches live rendering: relative boxes are
// preferred, absolute boxes (in the image's pixel space) are the fallback.
func (p Preview) MapRect(det models.Detection) (image.Rectangle, bool) {
	if det.BoxRelative != nil {
		b := det.BoxRelative
		return image.Rect(
			p.mapX(b.X1*float64(p.ImageWidth)),
			p.mapY(b.Y1*float64(p.ImageHeight)),
			p.mapX(b.X2*float64(p.ImageWidth)),
			p.mapY(b.Y2*float64(p.ImageHeight)),
		), true
	}
	if det.Box != nil {
		b := det.Box
		return image.Rect(p.mapX(b.X1), p.mapY(b.Y1), p.mapX(b.X2), p.mapY(b.Y2)), true
	}
	return image.Rectangle{}, false
}

func (p Preview) mapX(v float64) int {
	return int(math.Round(p.OffsetX + v*p.Scale))
}

func (p Preview) mapY(v float64) int {
	return int(math.Round(p.OffsetY + v*p.Scale))
}

// RenderPreview clears the canvas, draws the image scaled and centered per
// the preview mapping, then overlays detections through the same mapping.
func (c *Canvas) RenderPreview(img image.Image, detections []models.Detection, p Preview) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if img != nil {
		target := image.Rect(
			int(math.Round(p.OffsetX)),
			int(math.Round(p.OffsetY)),
			int(math.Round(p.OffsetX+float64(p.ImageWidth)*p.Scale)),
			int(math.Round(p.OffsetY+float64(p.ImageHeight)*p.Scale)),
		)
		draw.ApproxBiLinear.Scale(c.img, target, img, img.Bounds(), draw.Src, nil)
	}

	for _, det := range detections {
		rect, ok := p.MapRect(det)
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
