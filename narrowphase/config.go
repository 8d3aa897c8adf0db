package narrowphase

import (
	"fmt"

	"github.com/akmonengine/impact/epa"
	"github.com/akmonengine/impact/gjk"
)

// Strategy selects the narrow-phase engine.
type Strategy string

const (
	// StrategyShape dispatches on the pair of shape types (sphere-sphere, SAT, box-sphere)
	StrategyShape Strategy = "shape"
	// StrategyGJK runs GJK then EPA for every pair
	StrategyGJK Strategy = "gjk"
)

// Config tunes the detector.
type Config struct {
	Strategy         Strategy `yaml:"strategy"`
	GJKMaxIterations int      `yaml:"gjk_max_iterations"`
	EPAMaxIterations int      `yaml:"epa_max_iterations"`
	EPATolerance     float64  `yaml:"epa_tolerance"`
	// CCDMaxSteps caps the number of samples taken along a sweep
	CCDMaxSteps int `yaml:"ccd_max_steps"`
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyShape,
		GJKMaxIterations: gjk.DefaultMaxIterations,
		EPAMaxIterations: epa.DefaultMaxIterations,
		EPATolerance:     epa.DefaultTolerance,
		CCDMaxSteps:      16,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyShape, StrategyGJK:
	default:
		return fmt.Errorf("strategy: unknown %q", c.Strategy)
	}
	if c.GJKMaxIterations <= 0 {
		return fmt.Errorf("gjk_max_iterations: must be positive, got %d", c.GJKMaxIterations)
	}
	if c.EPAMaxIterations <= 0 {
		return fmt.Errorf("epa_max_iterations: must be positive, got %d", c.EPAMaxIterations)
	}
	if !(c.EPATolerance > 0) {
		return fmt.Errorf("epa_tolerance: must be positive, got %g", c.EPATolerance)
	}
	if c.CCDMaxSteps <= 0 {
		return fmt.Errorf("ccd_max_steps: must be positive, got %d", c.CCDMaxSteps)
	}
	return nil
}
