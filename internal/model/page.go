package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SubPage identifies which half of a scanned image a logical page refers to.
// A scan of an opened book produces one image containing two pages; after
// page splitting each half becomes its own logical page.
type SubPage int

const (
	// SubPageSingle means the image contains exactly one page.
	SubPageSingle SubPage = iota

	// SubPageLeft is the left half of a two-page scan.
	SubPageLeft

	// SubPageRight is the right half of a two-page scan.
	SubPageRight
)

// String returns a human-readable representation of the sub-page.
func (s SubPage) String() string {
	switch s {
	case SubPageSingle:
		return "single"
	case SubPageLeft:
		return "left"
	case SubPageRight:
		return "right"
	default:
		return fmt.Sprintf("SubPage(%d)", int(s))
	}
}

// ParseSubPage converts a string (as stored in project files) to a SubPage.
func ParseSubPage(s string) (SubPage, error) {
	switch strings.ToLower(s) {
	case "single", "":
		return SubPageSingle, nil
	case "left":
		return SubPageLeft, nil
	case "right":
		return SubPageRight, nil
	default:
		return SubPageSingle, fmt.Errorf("unknown sub-page %q", s)
	}
}

// PageID uniquely identifies one logical page of the document being
// processed. It is the key into every per-stage settings store.
//
// Design decision: PageID is a small comparable struct rather than an opaque
// string so it can be used directly as a map key while still carrying the
// source image path for logging and output naming. It is immutable by
// convention; nothing mutates a PageID after creation.
type PageID struct {
	// Image is the path to the source image file.
	Image string

	// SubPage selects which half of the image this page refers to.
	SubPage SubPage
}

// NewPageID creates a PageID for a whole (unsplit) scan.
func NewPageID(image string) PageID {
	return PageID{Image: image, SubPage: SubPageSingle}
}

// String returns a compact representation used in logs and error messages.
func (p PageID) String() string {
	if p.SubPage == SubPageSingle {
		return filepath.Base(p.Image)
	}
	return filepath.Base(p.Image) + " (" + p.SubPage.String() + ")"
}
