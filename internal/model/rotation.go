package model

import "fmt"

// Rotation is an orthogonal page rotation applied by the orientation stage.
// Only 90 degree steps are representable; arbitrary skew angles belong to
// the deskew stage instead.
type Rotation int

const (
	// RotationNone leaves the page as scanned.
	RotationNone Rotation = iota

	// Rotation90CW rotates the page 90 degrees clockwise.
	Rotation90CW

	// Rotation180 turns the page upside down.
	Rotation180

	// Rotation270CW rotates 270 degrees clockwise (90 counter-clockwise).
	Rotation270CW
)

// NextClockwise returns the rotation advanced by one clockwise step.
func (r Rotation) NextClockwise() Rotation {
	return Rotation((int(r) + 1) % 4)
}

// PrevClockwise returns the rotation moved back by one clockwise step.
func (r Rotation) PrevClockwise() Rotation {
	return Rotation((int(r) + 3) % 4)
}

// Degrees returns the clockwise rotation angle in degrees (0, 90, 180, 270).
func (r Rotation) Degrees() int {
	return int(r) * 90
}

// String returns a human-readable representation of the rotation.
func (r Rotation) String() string {
	switch r {
	case RotationNone:
		return "none"
	case Rotation90CW:
		return "right"
	case Rotation180:
		return "upsidedown"
	case Rotation270CW:
		return "left"
	default:
		return fmt.Sprintf("Rotation(%d)", int(r))
	}
}

// ParseRotation converts a CLI or project-file value to a Rotation.
// Accepted values mirror the classic command-line vocabulary:
// "none", "left", "right", "upsidedown".
func ParseRotation(s string) (Rotation, error) {
	switch s {
	case "none", "":
		return RotationNone, nil
	case "right":
		return Rotation90CW, nil
	case "upsidedown":
		return Rotation180, nil
	case "left":
		return Rotation270CW, nil
	default:
		return RotationNone, fmt.Errorf("unknown orientation %q (want none, left, right, or upsidedown)", s)
	}
}

// RotationFromEXIF maps a TIFF/EXIF orientation value (1-8) to the rotation
// that makes the image upright. Mirrored orientations (2, 4, 5, 7) are
// treated as their unmirrored counterparts; flipping is not supported by
// the orientation stage.
func RotationFromEXIF(orientation int) Rotation {
	switch orientation {
	case 3, 4:
		return Rotation180
	case 5, 6:
		return Rotation90CW
	case 7, 8:
		return Rotation270CW
	default:
		return RotationNone
	}
}
