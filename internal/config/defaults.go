package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/overrides"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// Defaults mirrors the override options in the string form used by the
// .pagetailor file. Empty strings and nil pointers mean "not set"; CLI
// flags take precedence over anything configured here.
type Defaults struct {
	// Orientation is the forced rotation: none, left, right, or upsidedown.
	Orientation string `yaml:"orientation,omitempty"`

	// Layout is the page splitting behavior: auto, single, or two-pages.
	Layout string `yaml:"layout,omitempty"`

	// Deskew is either "auto" or a fixed angle in degrees ("-1.5").
	Deskew string `yaml:"deskew,omitempty"`

	// MarginsMM sets uniform physical margins in millimeters.
	MarginsMM *float64 `yaml:"margins_mm,omitempty"`

	// ContentSizeMM is the physical content box target size.
	ContentSizeMM *model.SizeF `yaml:"content_size_mm,omitempty"`

	// OutputDPI is the output rendering resolution.
	OutputDPI *int `yaml:"output_dpi,omitempty"`

	// ColorMode is black_and_white, color_grayscale, or mixed.
	ColorMode string `yaml:"color_mode,omitempty"`

	// PictureShape is free or rectangular; only meaningful in mixed mode.
	PictureShape string `yaml:"picture_shape,omitempty"`

	// SplitOutput writes separate text and picture layers in mixed mode.
	SplitOutput *bool `yaml:"split_output,omitempty"`

	// WhiteMargins selects pure white margins.
	WhiteMargins *bool `yaml:"white_margins,omitempty"`

	// NormalizeIllumination toggles luminance flattening.
	NormalizeIllumination *bool `yaml:"normalize_illumination,omitempty"`

	// ThresholdAdjustment biases binarization.
	ThresholdAdjustment *int `yaml:"threshold_adjustment,omitempty"`

	// Despeckle is off, cautious, normal, or aggressive.
	Despeckle string `yaml:"despeckle,omitempty"`

	// Dewarping is off, auto, or manual.
	Dewarping string `yaml:"dewarping,omitempty"`

	// DepthPerception tunes dewarping strength.
	DepthPerception *float64 `yaml:"depth_perception,omitempty"`
}

// File represents the structure of the .pagetailor defaults file.
type File struct {
	// OutputDir is the default output directory.
	OutputDir string `yaml:"output_dir,omitempty"`

	// Workers is the default page concurrency.
	Workers int `yaml:"workers,omitempty"`

	// Overrides are the default per-stage settings applied before any
	// CLI flags.
	Overrides Defaults `yaml:"overrides,omitempty"`
}

// OverrideSet converts the file's string-form defaults into a typed
// override set. Unknown enum values fail loudly: a typo in the defaults
// file should not silently process a whole batch with the wrong settings.
func (d Defaults) OverrideSet() (overrides.Set, error) {
	var set overrides.Set

	if d.Orientation != "" {
		rotation, err := model.ParseRotation(d.Orientation)
		if err != nil {
			return overrides.Set{}, fmt.Errorf("defaults file: %w", err)
		}
		set.Orientation = &rotation
	}

	if d.Layout != "" {
		layout, err := stage.ParseLayoutType(d.Layout)
		if err != nil {
			return overrides.Set{}, fmt.Errorf("defaults file: %w", err)
		}
		set.Layout = &layout
	}

	if d.Deskew != "" {
		if strings.EqualFold(d.Deskew, "auto") {
			auto := true
			set.DeskewAuto = &auto
		} else {
			angle, err := strconv.ParseFloat(d.Deskew, 64)
			if err != nil {
				return overrides.Set{}, fmt.Errorf("defaults file: deskew %q is neither auto nor an angle", d.Deskew)
			}
			set.DeskewAngle = &angle
		}
	}

	if d.MarginsMM != nil {
		margins := model.UniformMargins(*d.MarginsMM)
		set.Margins = &margins
	}
	set.ContentSizeMM = d.ContentSizeMM
	set.OutputDPI = d.OutputDPI

	if d.ColorMode != "" {
		mode, err := stage.ParseColorMode(d.ColorMode)
		if err != nil {
			return overrides.Set{}, fmt.Errorf("defaults file: %w", err)
		}
		set.ColorMode = &mode
	}

	if d.PictureShape != "" {
		shape, err := stage.ParsePictureShape(d.PictureShape)
		if err != nil {
			return overrides.Set{}, fmt.Errorf("defaults file: %w", err)
		}
		set.PictureShape = &shape
	}

	set.SplitOutput = d.SplitOutput
	set.WhiteMargins = d.WhiteMargins
	set.NormalizeIllumination = d.NormalizeIllumination
	set.ThresholdAdjustment = d.ThresholdAdjustment

	if d.Despeckle != "" {
		level, err := stage.ParseDespeckleLevel(d.Despeckle)
		if err != nil {
			return overrides.Set{}, fmt.Errorf("defaults file: %w", err)
		}
		set.Despeckle = &level
	}

	if d.Dewarping != "" {
		mode, err := stage.ParseDewarpingMode(d.Dewarping)
		if err != nil {
			return overrides.Set{}, fmt.Errorf("defaults file: %w", err)
		}
		set.Dewarping = &mode
	}
	set.DepthPerception = d.DepthPerception

	return set, nil
}
