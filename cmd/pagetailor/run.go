package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pagetailor/pagetailor/internal/accel"
	"github.com/pagetailor/pagetailor/internal/config"
	"github.com/pagetailor/pagetailor/internal/history"
	"github.com/pagetailor/pagetailor/internal/log"
	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/overrides"
	"github.com/pagetailor/pagetailor/internal/pipeline"
	"github.com/pagetailor/pagetailor/internal/preview"
	"github.com/pagetailor/pagetailor/internal/project"
	"github.com/pagetailor/pagetailor/internal/report"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [images...]",
		Short: "Process scanned images through the pipeline",
		Long: `Process scanned document images through the full pipeline and write
the cleaned-up results to the output directory.

Pages come from the image files given as arguments, from a project file
(--project), or both. Override flags apply the same setting to every
page of the run; per-page settings live in the project file.`,
		Example: `  # Process two scans with default settings
  pagetailor run scan001.png scan002.png --output-dir out/

  # Re-run a saved project at 300 DPI, stopping after deskew
  pagetailor run --project book.ptp --dpi 300 --end-filter deskew

  # Force two-page splitting and save the resulting project
  pagetailor run spreads/*.png -d out/ --layout two-pages --save-project book.ptp`,
		RunE: runRun,
	}

	cmd.Flags().StringP("project", "p", "", "Project file to load pages and per-page settings from")
	cmd.Flags().StringP("output-dir", "d", "", "Directory to write result images to")
	cmd.Flags().String("save-project", "", "Save the effective settings as a project file after the run")
	cmd.Flags().StringP("end-filter", "f", "", "Last stage to run (fix_orientation|page_split|deskew|select_content|page_layout|output)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of pages processed concurrently")
	cmd.Flags().Int("preview-cache", preview.DefaultCapacity, "Capacity of the thumbnail cache")
	cmd.Flags().StringP("config", "c", "", "Defaults file (default: .pagetailor in cwd or home)")
	cmd.Flags().BoolP("json", "j", false, "Write the run report as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Write the run report as Markdown")
	cmd.Flags().StringP("report", "o", "", "Write the run report to a file instead of stdout")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().String("db-dir", "", "Directory holding the run history database (default: XDG data dir)")

	// Override flags. Each applies the same setting to every page of the
	// run; a flag that is not given leaves existing settings untouched.
	cmd.Flags().String("orientation", "", "Force page orientation (none|left|right|upsidedown)")
	cmd.Flags().String("layout", "", "Force page splitting (auto|single|two-pages)")
	cmd.Flags().String("deskew", "", "Deskew mode: \"auto\" or a fixed angle in degrees")
	cmd.Flags().String("content-box", "", "Force the content box as x,y,width,height in pixels")
	cmd.Flags().String("content-size", "", "Physical content size as WIDTHxHEIGHT in millimeters")
	cmd.Flags().Float64("margins", stage.DefaultMarginMM, "Page margins in millimeters, same on all sides")
	cmd.Flags().Int("dpi", stage.DefaultOutputDPI, "Output resolution")
	cmd.Flags().String("color-mode", "", "Output color mode (black_and_white|color_grayscale|mixed)")
	cmd.Flags().String("picture-shape", "", "Picture zone shape in mixed mode (free|rectangular)")
	cmd.Flags().Bool("split-output", false, "Write text and picture layers separately (mixed mode only)")
	cmd.Flags().Bool("white-margins", true, "Fill margins with white instead of the page tone")
	cmd.Flags().Bool("normalize-illumination", false, "Flatten uneven lighting before binarization")
	cmd.Flags().Int("threshold", 0, "Binarization threshold adjustment")
	cmd.Flags().String("despeckle", "", "Speck removal level (off|cautious|normal|aggressive)")
	cmd.Flags().String("dewarping", "", "Curvature correction (off|auto|manual)")
	cmd.Flags().Float64("depth-perception", 0, "Dewarping depth perception")

	return cmd
}

// runRun executes the run command.
func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)

	set, err := buildOverrideSet(cmd, cfg)
	if err != nil {
		return err
	}

	// Cancel the run on Ctrl+C or SIGTERM. Pages already being processed
	// finish; pages not yet started are recorded as skipped.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("interrupt received, finishing pages already in flight")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runBatch(ctx, cmd, cfg, set, logger)
}

// buildConfig assembles the run configuration from command line flags and
// the optional defaults file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Images = args

	cfg.Verbose = getVerboseFlag(cmd)

	projectFile, err := cmd.Flags().GetString("project")
	if err != nil {
		return nil, fmt.Errorf("failed to get project flag: %w", err)
	}
	cfg.ProjectFile = projectFile

	outputDir, err := cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get output-dir flag: %w", err)
	}
	cfg.OutputDir = outputDir

	saveProject, err := cmd.Flags().GetString("save-project")
	if err != nil {
		return nil, fmt.Errorf("failed to get save-project flag: %w", err)
	}
	cfg.SaveProject = saveProject

	endFilter, err := cmd.Flags().GetString("end-filter")
	if err != nil {
		return nil, fmt.Errorf("failed to get end-filter flag: %w", err)
	}
	cfg.EndFilter = endFilter

	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, fmt.Errorf("failed to get workers flag: %w", err)
	}
	cfg.Workers = workers

	previewCapacity, err := cmd.Flags().GetInt("preview-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get preview-cache flag: %w", err)
	}
	cfg.PreviewCapacity = previewCapacity

	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, fmt.Errorf("failed to get json flag: %w", err)
	}
	cfg.JSONReport = jsonReport

	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, fmt.Errorf("failed to get markdown flag: %w", err)
	}
	cfg.MarkdownReport = markdownReport

	reportFile, err := cmd.Flags().GetString("report")
	if err != nil {
		return nil, fmt.Errorf("failed to get report flag: %w", err)
	}
	cfg.ReportFile = reportFile

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-history flag: %w", err)
	}
	cfg.SaveHistory = !noHistory

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get db-dir flag: %w", err)
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if err := applyConfigFile(cmd, cfg, configPath); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// applyConfigFile loads the defaults file and folds its run-level settings
// into the configuration. Flags given on the command line win.
//
// An explicitly named file that does not exist is an error; a missing
// default-location file is not.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config, configPath string) error {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return fmt.Errorf("defaults file not found: %s", configPath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load defaults file %s: %w", path, err)
	}
	cfg.ConfigFilePath = path
	cfg.Defaults = file

	if cfg.OutputDir == "" {
		cfg.OutputDir = file.OutputDir
	}
	if !cmd.Flags().Changed("workers") && file.Workers > 0 {
		cfg.Workers = file.Workers
	}
	return nil
}

// buildOverrideSet turns the defaults file and the override flags into a
// single Set. Flags win over the defaults file field by field.
func buildOverrideSet(cmd *cobra.Command, cfg *config.Config) (overrides.Set, error) {
	var set overrides.Set

	if cfg.Defaults != nil {
		fromFile, err := cfg.Defaults.Overrides.OverrideSet()
		if err != nil {
			return overrides.Set{}, fmt.Errorf("invalid defaults file %s: %w", cfg.ConfigFilePath, err)
		}
		set = fromFile
	}

	flags := cmd.Flags()

	if s, err := flags.GetString("orientation"); err == nil && s != "" {
		rotation, err := model.ParseRotation(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.Orientation = &rotation
	}

	if s, err := flags.GetString("layout"); err == nil && s != "" {
		layout, err := stage.ParseLayoutType(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.Layout = &layout
	}

	if s, err := flags.GetString("deskew"); err == nil && s != "" {
		if strings.EqualFold(s, "auto") {
			auto := true
			set.DeskewAuto = &auto
			set.DeskewAngle = nil
		} else {
			angle, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return overrides.Set{}, fmt.Errorf("invalid deskew value %q (want \"auto\" or an angle in degrees)", s)
			}
			set.DeskewAngle = &angle
			set.DeskewAuto = nil
		}
	}

	if s, err := flags.GetString("content-box"); err == nil && s != "" {
		box, err := parseRect(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.ContentBox = &box
	}

	if s, err := flags.GetString("content-size"); err == nil && s != "" {
		size, err := parseSize(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.ContentSizeMM = &size
	}

	if flags.Changed("margins") {
		mm, err := flags.GetFloat64("margins")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get margins flag: %w", err)
		}
		margins := model.UniformMargins(mm)
		set.Margins = &margins
	}

	if flags.Changed("dpi") {
		dpi, err := flags.GetInt("dpi")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get dpi flag: %w", err)
		}
		if dpi <= 0 {
			return overrides.Set{}, fmt.Errorf("invalid dpi %d", dpi)
		}
		set.OutputDPI = &dpi
	}

	if s, err := flags.GetString("color-mode"); err == nil && s != "" {
		mode, err := stage.ParseColorMode(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.ColorMode = &mode
	}

	if s, err := flags.GetString("picture-shape"); err == nil && s != "" {
		shape, err := stage.ParsePictureShape(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.PictureShape = &shape
	}

	if flags.Changed("split-output") {
		split, err := flags.GetBool("split-output")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get split-output flag: %w", err)
		}
		set.SplitOutput = &split
	}

	if flags.Changed("white-margins") {
		white, err := flags.GetBool("white-margins")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get white-margins flag: %w", err)
		}
		set.WhiteMargins = &white
	}

	if flags.Changed("normalize-illumination") {
		normalize, err := flags.GetBool("normalize-illumination")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get normalize-illumination flag: %w", err)
		}
		set.NormalizeIllumination = &normalize
	}

	if flags.Changed("threshold") {
		threshold, err := flags.GetInt("threshold")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get threshold flag: %w", err)
		}
		set.ThresholdAdjustment = &threshold
	}

	if s, err := flags.GetString("despeckle"); err == nil && s != "" {
		level, err := stage.ParseDespeckleLevel(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.Despeckle = &level
	}

	if s, err := flags.GetString("dewarping"); err == nil && s != "" {
		mode, err := stage.ParseDewarpingMode(s)
		if err != nil {
			return overrides.Set{}, err
		}
		set.Dewarping = &mode
	}

	if flags.Changed("depth-perception") {
		depth, err := flags.GetFloat64("depth-perception")
		if err != nil {
			return overrides.Set{}, fmt.Errorf("failed to get depth-perception flag: %w", err)
		}
		set.DepthPerception = &depth
	}

	return set, nil
}

// parseRect parses "x,y,width,height" in image pixels.
func parseRect(s string) (model.RectF, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.RectF{}, fmt.Errorf("invalid content box %q (want x,y,width,height)", s)
	}
	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return model.RectF{}, fmt.Errorf("invalid content box %q: %w", s, err)
		}
		values[i] = v
	}
	rect := model.RectF{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
	if rect.IsEmpty() {
		return model.RectF{}, fmt.Errorf("invalid content box %q: width and height must be positive", s)
	}
	return rect, nil
}

// parseSize parses "WIDTHxHEIGHT" in millimeters, for example "210x297".
func parseSize(s string) (model.SizeF, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return model.SizeF{}, fmt.Errorf("invalid content size %q (want WIDTHxHEIGHT in mm)", s)
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.SizeF{}, fmt.Errorf("invalid content size %q: %w", s, err)
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.SizeF{}, fmt.Errorf("invalid content size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return model.SizeF{}, fmt.Errorf("invalid content size %q: dimensions must be positive", s)
	}
	return model.SizeF{Width: width, Height: height}, nil
}

// runBatch wires the registry, override engine, builder, and runner
// together and processes every page of the run.
func runBatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, set overrides.Set, logger *slog.Logger) error {
	disambiguator := model.NewDisambiguator()

	var doc *project.Document
	if cfg.ProjectFile != "" {
		loaded, err := project.Load(cfg.ProjectFile)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		doc = loaded
		if cfg.OutputDir == "" {
			cfg.OutputDir = doc.OutputDir
		}
	}

	registry := stage.NewRegistry(stage.Deps{
		Previews: preview.NewCache(cfg.PreviewCapacity),
		Names:    model.NewFileNameGenerator(disambiguator, cfg.OutputDir),
		Logger:   logger,
	})

	var pages []model.PageID
	if doc != nil {
		restored, err := doc.Apply(registry, disambiguator)
		if err != nil {
			return fmt.Errorf("failed to apply project: %w", err)
		}
		pages = restored
	}
	for _, image := range cfg.Images {
		pages = append(pages, model.NewPageID(image))
	}

	overrides.NewEngine(registry, logger).Apply(set, pages)

	lastIndex := registry.LastIndex()
	if cfg.EndFilter != "" {
		index, err := registry.IndexOf(cfg.EndFilter)
		if err != nil {
			return err
		}
		lastIndex = index
	}

	builder := pipeline.NewBuilder(registry,
		pipeline.WithAcceleration(accel.NewDefaultProvider()),
		pipeline.WithBuilderLogger(logger),
	)

	var progressMu sync.Mutex
	progress := func(event pipeline.ProgressEvent) {
		progressMu.Lock()
		defer progressMu.Unlock()
		switch {
		case event.Err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s: %v\n", event.Index+1, event.Total, event.Page, event.Err)
		case event.Skipped:
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s: skipped\n", event.Index+1, event.Total, event.Page)
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s: done\n", event.Index+1, event.Total, event.Page)
		}
	}

	runner := pipeline.NewRunner(builder,
		pipeline.WithLastStage(lastIndex),
		pipeline.WithConcurrency(cfg.Workers),
		pipeline.WithProgress(progress),
		pipeline.WithRunnerLogger(logger),
	)

	result := runner.Run(ctx, pages)

	if err := outputReport(cmd, cfg, result); err != nil {
		return err
	}

	if cfg.SaveHistory {
		if err := saveHistory(cfg, result, logger); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}

	if cfg.SaveProject != "" {
		captured := project.Capture(registry, pages, disambiguator, cfg.OutputDir)
		if err := project.Save(cfg.SaveProject, captured); err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}
		logger.Info("project saved", "project", cfg.SaveProject)
	}

	if result.State == model.RunAborted {
		return fmt.Errorf("run aborted: %d of %d pages processed", result.Processed, result.Total())
	}
	if result.Incomplete() {
		return fmt.Errorf("run finished with %d failed page(s)", result.Failed)
	}
	return nil
}

// outputReport writes the run report to the configured destination.
func outputReport(cmd *cobra.Command, cfg *config.Config, result *model.RunResult) error {
	var out io.Writer = cmd.OutOrStdout()

	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		file, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close() //nolint:errcheck // Best effort close
		out = file
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out)
	}

	if _, err := writer.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveHistory records the finished run in the history database.
// The run context may already be cancelled when this is called, so the
// write uses its own context.
func saveHistory(cfg *config.Config, result *model.RunResult, logger *slog.Logger) error {
	db, err := history.Open(cfg.DBDir, history.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Best effort close

	id, err := db.SaveRun(context.Background(), result, cfg.OutputDir)
	if err != nil {
		return err
	}
	logger.Debug("run history recorded", "id", id, "path", db.Path())
	return nil
}
