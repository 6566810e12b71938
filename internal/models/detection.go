package models

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// Label classifies the ripeness of a detected fruit.
type Label string

const (
	LabelRipe    Label = "Ripe"
	LabelUnripe  Label = "Unripe"
	LabelRotten  Label = "Rotten"
	LabelUnknown Label = "Unknown"
)

// Assessment strings persisted alongside each label.
const (
	AssessmentReady    = "Ready for Harvesting"
	AssessmentNotReady = "Not Ready for Harvesting"
	AssessmentRotten   = "Rotten"
	AssessmentUnknown  = "Unknown Assessment"
)

// Default box fractions used when the model finds nothing above threshold.
const (
	defaultBoxX1 = 0.1
	defaultBoxY1 = 0.1
	defaultBoxX2 = 0.9
	defaultBoxY2 = 0.9
)

// LabelForClass maps a model class index to a ripeness label.
// The model is trained with 0=Ripe, 1=Rotten, 2=Unripe.
func LabelForClass(classID int) Label {
	switch classID {
	case 0:
		return LabelRipe
	case 1:
		return LabelRotten
	case 2:
		return LabelUnripe
	}
	return LabelUnknown
}

// Assessment returns the harvest assessment text for a label.
func (l Label) Assessment() string {
	switch l {
	case LabelRipe:
		return AssessmentReady
	case LabelUnripe:
		return AssessmentNotReady
	case LabelRotten:
		return AssessmentRotten
	}
	return AssessmentUnknown
}

// Rect is a bounding rectangle as two corners (x1,y1)-(x2,y2). It is
// serialized as a four-element array to match the wire format.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// MarshalJSON encodes the rectangle as [x1, y1, x2, y2].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X1, r.Y1, r.X2, r.Y2})
}

// UnmarshalJSON decodes a [x1, y1, x2, y2] array.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != 4 {
		return fmt.Errorf("expected 4 box coordinates, got %d", len(coords))
	}
	r.X1, r.Y1, r.X2, r.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// Detection is one labeled, scored, located object found in an image.
// Box holds absolute pixel coordinates in the inference image's space;
// BoxRelative holds the same rectangle as fractions of width/height and is
// the canonical form for rendering, since the display surface may not match
// the inference image's dimensions.
type Detection struct {
	Label       Label   `json:"label"`
	Score       float64 `json:"score"`
	Box         *Rect   `json:"box,omitempty"`
	BoxRelative *Rect   `json:"box_relative,omitempty"`
	Assessment  string  `json:"assessment"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
}

// PixelRect resolves the detection's rectangle against a surface of the
// given dimensions. Relative coordinates are preferred; absolute
// coordinates are a legacy fallback assumed to already be in the surface's
// pixel space. The second return value is false when no box is present.
func (d Detection) PixelRect(width, height int) (image.Rectangle, bool) {
	if d.BoxRelative != nil {
		b := d.BoxRelative
		return image.Rect(
			round(b.X1*float64(width)),
			round(b.Y1*float64(height)),
			round(b.X2*float64(width)),
			round(b.Y2*float64(height)),
		), true
	}
	if d.Box != nil {
		b := d.Box
		return image.Rect(round(b.X1), round(b.Y1), round(b.X2), round(b.Y2)), true
	}
	return image.Rectangle{}, false
}

// DefaultDetection is returned when no object clears the confidence
// threshold, so the client always has a rectangle to draw.
func DefaultDetection(imageWidth, imageHeight int) Detection {
	w := float64(imageWidth)
	h := float64(imageHeight)
	return Detection{
		Label:       LabelUnknown,
		Score:       0,
		Box:         &Rect{X1: defaultBoxX1 * w, Y1: defaultBoxY1 * h, X2: defaultBoxX2 * w, Y2: defaultBoxY2 * h},
		BoxRelative: &Rect{X1: defaultBoxX1, Y1: defaultBoxY1, X2: defaultBoxX2, Y2: defaultBoxY2},
		Assessment:  AssessmentNotReady,
		ImageWidth:  imageWidth,
		ImageHeight: imageHeight,
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
