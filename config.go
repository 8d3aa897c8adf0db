package impact

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/akmonengine/impact/constraint"
	"github.com/akmonengine/impact/narrowphase"
	"gopkg.in/yaml.v3"
)

const DEFAULT_WORKERS = 1

// Config holds every tunable of the collision core. It is a plain value: how
// it is loaded is up to the caller, ParseConfig only decodes a YAML document.
type Config struct {
	// FatMargin grows every leaf box of the broad phase
	FatMargin float64 `yaml:"fat_margin"`
	// DisplacementMultiplier stretches re-inserted leaves along their frame displacement
	DisplacementMultiplier float64 `yaml:"displacement_multiplier"`
	// MaxShapes sizes the broad phase; it never grows
	MaxShapes int `yaml:"max_shapes"`

	// CCDSpeedThreshold is the speed above which a pair is swept instead of tested discretely
	CCDSpeedThreshold float64 `yaml:"ccd_speed_threshold"`
	SolverIterations  int     `yaml:"solver_iterations"`
	// Workers is the number of goroutines running the detection phase
	Workers int `yaml:"workers"`

	Detection narrowphase.Config `yaml:",inline"`
	Solver    constraint.Config  `yaml:",inline"`
}

// DefaultConfig returns the defaults of every field.
func DefaultConfig() Config {
	return Config{
		FatMargin:              0.1,
		DisplacementMultiplier: 2.0,
		MaxShapes:              1024,
		CCDSpeedThreshold:      20,
		SolverIterations:       10,
		Workers:                DEFAULT_WORKERS,
		Detection:              narrowphase.DefaultConfig(),
		Solver:                 constraint.DefaultConfig(),
	}
}

// ParseConfig decodes a YAML document over DefaultConfig and validates the
// result. Unknown keys are rejected; an empty document yields the defaults.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if !(c.FatMargin >= 0) {
		return fmt.Errorf("%w: fat_margin: must be >= 0, got %g", ErrInvalidConfig, c.FatMargin)
	}
	if !(c.DisplacementMultiplier >= 0) {
		return fmt.Errorf("%w: displacement_multiplier: must be >= 0, got %g", ErrInvalidConfig, c.DisplacementMultiplier)
	}
	if c.MaxShapes <= 0 {
		return fmt.Errorf("%w: max_shapes: must be positive, got %d", ErrInvalidConfig, c.MaxShapes)
	}
	if !(c.CCDSpeedThreshold >= 0) {
		return fmt.Errorf("%w: ccd_speed_threshold: must be >= 0, got %g", ErrInvalidConfig, c.CCDSpeedThreshold)
	}
	if c.SolverIterations <= 0 {
		return fmt.Errorf("%w: solver_iterations: must be positive, got %d", ErrInvalidConfig, c.SolverIterations)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers: must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
