package accel

import (
	"errors"
	"runtime"
)

// ErrUnavailable is returned by a Provider when acceleration cannot be set
// up on this machine. Callers must treat it as advisory: log a warning and
// fall back to Ops{}, never fail the page.
var ErrUnavailable = errors.New("acceleration unavailable on this platform")

// Ops is the set of advisory hints attached to a page's task chain.
// The zero value means plain, unaccelerated processing.
type Ops struct {
	// Vectorized hints that stages may use wide-register math paths.
	Vectorized bool

	// LowMemory hints that stages should trade speed for a smaller
	// working set, for example by processing images in horizontal bands.
	LowMemory bool
}

// Provider detects the acceleration capabilities of the current machine.
//
// Design decision: We use an interface with a trivial default rather than
// a function so tests (and future GPU-backed implementations) can swap the
// detection logic without touching the pipeline.
type Provider interface {
	// Ops returns the hints for this machine, or ErrUnavailable.
	Ops() (Ops, error)
}

// DefaultProvider detects capabilities from the runtime environment.
type DefaultProvider struct{}

// NewDefaultProvider creates the standard capability detector.
func NewDefaultProvider() *DefaultProvider {
	return &DefaultProvider{}
}

// Ops reports hints based on the architecture and available CPUs.
// amd64 and arm64 both carry usable vector units; a single-CPU machine is
// asked to run in the memory-saving mode since it is likely a small VPS.
func (p *DefaultProvider) Ops() (Ops, error) {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return Ops{
			Vectorized: true,
			LowMemory:  runtime.NumCPU() <= 1,
		}, nil
	default:
		return Ops{}, ErrUnavailable
	}
}
