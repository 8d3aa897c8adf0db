// Package constraint resolves contacts with sequential impulses.
//
// Each contact accumulates its normal and friction impulses across solver
// iterations; the accumulated values are clamped (normal >= 0, friction inside
// the Coulomb cone) and carried to the next frame to warm start the solver.
package constraint

import (
	"fmt"

	"github.com/akmonengine/impact/actor"
)

// Config tunes the contact solver.
type Config struct {
	// Slop is the penetration tolerated without positional correction
	Slop float64 `yaml:"slop"`
	// BiasFactor is the fraction of the penetration corrected per step (Baumgarte)
	BiasFactor float64 `yaml:"bias_factor"`
	// RestitutionThreshold is the approach speed below which contacts do not bounce
	RestitutionThreshold float64 `yaml:"restitution_threshold"`
	// StaticFrictionSpeed is the tangential speed below which static friction applies
	StaticFrictionSpeed float64 `yaml:"static_friction_speed"`
	// ImpulseTolerance marks a contact converged once its impulse changes by less
	ImpulseTolerance float64 `yaml:"impulse_tolerance"`
	// WarmStartFactor scales the impulses carried over from the previous frame
	WarmStartFactor float64 `yaml:"warm_start_factor"`
}

// DefaultConfig returns the solver defaults.
func DefaultConfig() Config {
	return Config{
		Slop:                 0.01,
		BiasFactor:           0.2,
		RestitutionThreshold: 1.0,
		StaticFrictionSpeed:  0.05,
		ImpulseTolerance:     1e-6,
		WarmStartFactor:      1.0,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if !(c.Slop >= 0) {
		return fmt.Errorf("slop: must be >= 0, got %g", c.Slop)
	}
	if !(c.BiasFactor >= 0 && c.BiasFactor <= 1) {
		return fmt.Errorf("bias_factor: must be in [0,1], got %g", c.BiasFactor)
	}
	if !(c.RestitutionThreshold >= 0) {
		return fmt.Errorf("restitution_threshold: must be >= 0, got %g", c.RestitutionThreshold)
	}
	if !(c.StaticFrictionSpeed >= 0) {
		return fmt.Errorf("static_friction_speed: must be >= 0, got %g", c.StaticFrictionSpeed)
	}
	if !(c.ImpulseTolerance > 0) {
		return fmt.Errorf("impulse_tolerance: must be positive, got %g", c.ImpulseTolerance)
	}
	if !(c.WarmStartFactor >= 0 && c.WarmStartFactor <= 1) {
		return fmt.Errorf("warm_start_factor: must be in [0,1], got %g", c.WarmStartFactor)
	}
	return nil
}

// BiasSpeed is the Baumgarte position-correction speed for a penetration:
// max(0, penetration - slop) * biasFactor / dt.
func BiasSpeed(penetration, dt float64, config Config) float64 {
	if dt <= 0 {
		return 0
	}
	return max(0, penetration-config.Slop) * config.BiasFactor / dt
}

// Material combination rules: the arithmetic mean of both bodies.

func ComputeRestitution(matA, matB actor.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	return (matA.StaticFriction + matB.StaticFriction) / 2.0
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return (matA.DynamicFriction + matB.DynamicFriction) / 2.0
}
