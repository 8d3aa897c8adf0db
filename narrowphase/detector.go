package narrowphase

import (
	"os"

	"github.com/akmonengine/impact/actor"
	"github.com/charmbracelet/log"
)

// Detector runs narrow-phase tests. It holds no per-pair state and is safe
// for concurrent use.
type Detector struct {
	config Config
	logger *log.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger used to report construction failures.
func WithLogger(logger *log.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector creates a detector. Zero-valued config fields fall back on DefaultConfig.
func NewDetector(config Config, options ...Option) *Detector {
	defaults := DefaultConfig()
	if config.Strategy == "" {
		config.Strategy = defaults.Strategy
	}
	if config.GJKMaxIterations <= 0 {
		config.GJKMaxIterations = defaults.GJKMaxIterations
	}
	if config.EPAMaxIterations <= 0 {
		config.EPAMaxIterations = defaults.EPAMaxIterations
	}
	if config.EPATolerance <= 0 {
		config.EPATolerance = defaults.EPATolerance
	}
	if config.CCDMaxSteps <= 0 {
		config.CCDMaxSteps = defaults.CCDMaxSteps
	}

	d := &Detector{
		config: config,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "narrowphase", Level: log.WarnLevel}),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.config
}

// DetectDiscrete tests the shapes at a single pair of transforms.
// The normal of a positive result points from a toward b.
func (d *Detector) DetectDiscrete(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) Result {
	posedA := actor.PosedShape{Shape: a, Transform: xfA}
	posedB := actor.PosedShape{Shape: b, Transform: xfB}

	if d.config.Strategy == StrategyGJK {
		return d.detectConvex(posedA, posedB)
	}

	switch {
	case a.Type == actor.ShapeTypeSphere && b.Type == actor.ShapeTypeSphere:
		return sphereSphere(posedA, posedB)
	case a.Type == actor.ShapeTypeBox && b.Type == actor.ShapeTypeBox:
		return boxBox(posedA, posedB)
	case a.Type == actor.ShapeTypeBox && b.Type == actor.ShapeTypeSphere:
		return boxSphere(posedA, posedB)
	case a.Type == actor.ShapeTypeSphere && b.Type == actor.ShapeTypeBox:
		return boxSphere(posedB, posedA).Flip()
	}

	// Unknown pairing: the convex engine only needs support functions
	return d.detectConvex(posedA, posedB)
}
