package stage

import (
	"context"
	"image"

	"github.com/pagetailor/pagetailor/internal/accel"
	"github.com/pagetailor/pagetailor/internal/model"
)

// Task is one stage's unit of work for one page. A task owns the next
// stage's task and forwards the artifact to it after doing its own work,
// so executing the chain's root runs the stages in increasing order.
type Task interface {
	// Process performs this stage's work on the artifact, then invokes
	// the downstream task. A returned error stops the chain.
	Process(ctx context.Context, art *Artifact) error
}

// Artifact carries one page's accumulated state down the task chain.
// Every stage reads what upstream stages produced and records its own
// results here.
type Artifact struct {
	// Page identifies the page being processed.
	Page model.PageID

	// Accel holds the advisory acceleration hints for this run.
	Accel accel.Ops

	// Image is the current working image. The load task seeds it; the
	// orientation, split, and deskew stages replace it as they transform
	// the page.
	Image image.Image

	// Rotation is the orthogonal rotation applied by the orientation stage.
	Rotation model.Rotation

	// SkewAngle is the skew correction in degrees applied by the deskew
	// stage (positive = counter-clockwise correction).
	SkewAngle float64

	// ContentBox is the detected or overridden content region, in
	// coordinates of the current working image.
	ContentBox model.RectF

	// Margins are the physical page margins chosen by the layout stage.
	Margins model.MarginsF

	// OutputPath is the file the output stage wrote, empty until then.
	OutputPath string

	// StagesRun lists the names of the stages that processed this page,
	// in execution order.
	StagesRun []string
}

// forward passes the artifact to the next task, checking for cancellation
// first. A nil next task means this stage is the end of the chain.
func forward(ctx context.Context, next Task, art *Artifact) error {
	if next == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return next.Process(ctx, art)
}
