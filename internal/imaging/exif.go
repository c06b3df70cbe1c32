package imaging

import (
	"os"
	"strconv"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/pagetailor/pagetailor/internal/model"
)

// Orientation reads the EXIF orientation tag of the image at path and maps
// it to the rotation that makes the page upright.
//
// The result is advisory: images without EXIF data (most TIFF scans, every
// PNG) simply yield RotationNone, and extraction errors are treated the
// same way rather than failing the page. The orientation stage only uses
// this as the starting point for its automatic mode.
func Orientation(path string) model.Rotation {
	data, err := os.ReadFile(path) //nolint:gosec // Paths come from the user's own project
	if err != nil {
		return model.RotationNone
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return model.RotationNone
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return model.RotationNone
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		value, err := strconv.Atoi(entry.Formatted)
		if err != nil {
			return model.RotationNone
		}
		return model.RotationFromEXIF(value)
	}

	return model.RotationNone
}
