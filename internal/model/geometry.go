package model

// RectF is an axis-aligned rectangle in image coordinates (pixels).
// It is used for content boxes and page boxes detected or overridden
// during processing.
type RectF struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsEmpty reports whether the rectangle has no area.
func (r RectF) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// SizeF is a physical size in millimeters, used for target content sizes.
type SizeF struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsZero reports whether the size is unset.
func (s SizeF) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// MarginsF holds page margins in millimeters.
type MarginsF struct {
	Top    float64 `json:"top" yaml:"top"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
	Right  float64 `json:"right" yaml:"right"`
}

// UniformMargins returns margins with the same value on all four sides.
func UniformMargins(mm float64) MarginsF {
	return MarginsF{Top: mm, Bottom: mm, Left: mm, Right: mm}
}

// Dpi is a horizontal/vertical resolution pair.
// Scanners occasionally produce non-square pixels, so the two axes are
// kept separate even though they are almost always equal.
type Dpi struct {
	Horizontal int `json:"horizontal" yaml:"horizontal"`
	Vertical   int `json:"vertical" yaml:"vertical"`
}

// UniformDpi returns a Dpi with the same resolution on both axes.
func UniformDpi(dpi int) Dpi {
	return Dpi{Horizontal: dpi, Vertical: dpi}
}

// IsZero reports whether the resolution is unset.
func (d Dpi) IsZero() bool {
	return d.Horizontal == 0 && d.Vertical == 0
}
