package narrowphase

import (
	"math"

	"github.com/akmonengine/impact/actor"
)

// bisectionIterations refines the time of impact to 2^-12 of the sampled interval
const bisectionIterations = 12

// DetectCCD looks for the first contact along the motion of both shapes from
// their previous to their current transforms (conservative advancement).
//
// The sweep is sampled at a spacing that keeps each shape from moving more
// than half its smallest extent between samples, capped by CCDMaxSteps. The
// interval around the first colliding sample is bisected and the contact is
// reported at that time, with TOI set to the fraction of the frame.
//
// Shapes already overlapping at the start of the sweep have no impact to find:
// the discrete result at the current transforms is returned. A non-positive dt
// also falls back on discrete detection.
func (d *Detector) DetectCCD(a actor.Shape, prevA, curA actor.Transform, b actor.Shape, prevB, curB actor.Transform, dt float64) Result {
	if dt <= 0 {
		return d.DetectDiscrete(a, curA, b, curB)
	}

	if start := d.DetectDiscrete(a, prevA, b, prevB); start.Collided {
		return d.DetectDiscrete(a, curA, b, curB)
	}

	steps := d.sweepSteps(a, prevA, curA, b, prevB, curB)
	at := func(t float64) Result {
		return d.DetectDiscrete(a, actor.Interpolate(prevA, curA, t), b, actor.Interpolate(prevB, curB, t))
	}

	lo := 0.0
	for i := 1; i <= steps; i++ {
		hi := float64(i) / float64(steps)
		hit := at(hi)
		if !hit.Collided {
			lo = hi
			continue
		}

		// lo is free, hi is colliding
		for j := 0; j < bisectionIterations; j++ {
			mid := (lo + hi) * 0.5
			if r := at(mid); r.Collided {
				hi = mid
				hit = r
			} else {
				lo = mid
			}
		}
		hit.TOI = hi
		return hit
	}

	return noCollision()
}

// sweepSteps returns the number of samples along the sweep
func (d *Detector) sweepSteps(a actor.Shape, prevA, curA actor.Transform, b actor.Shape, prevB, curB actor.Transform) int {
	// Relative translation plus the arc swept by rotation at the bounding radius
	travel := curB.Position.Sub(prevB.Position).Sub(curA.Position.Sub(prevA.Position)).Len()
	travel += rotationAngle(prevA, curA)*a.Radius() + rotationAngle(prevB, curB)*b.Radius()

	spacing := 0.5 * math.Min(a.MinExtent(), b.MinExtent())
	if spacing <= 0 {
		return d.config.CCDMaxSteps
	}

	steps := int(math.Ceil(travel / spacing))
	return max(1, min(steps, d.config.CCDMaxSteps))
}

// rotationAngle is the angle between two orientations, in radians
func rotationAngle(from, to actor.Transform) float64 {
	dot := math.Abs(from.Orientation().Dot(to.Orientation()))
	return 2 * math.Acos(math.Min(1, dot))
}
