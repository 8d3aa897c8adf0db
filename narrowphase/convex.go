package narrowphase

import (
	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/epa"
	"github.com/akmonengine/impact/gjk"
)

// detectConvex runs GJK, then EPA on the terminal simplex.
// EPA construction failures are logged and reported as no collision.
func (d *Detector) detectConvex(a, b actor.PosedShape) Result {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(a, b, simplex, d.config.GJKMaxIterations) {
		return noCollision()
	}

	penetration, err := epa.EPA(a, b, simplex, d.config.EPAMaxIterations, d.config.EPATolerance)
	if err != nil {
		d.logger.Warn("penetration query failed",
			"shapeA", a.Shape.Type, "positionA", a.Center(),
			"shapeB", b.Shape.Type, "positionB", b.Center(),
			"err", err)
		return noCollision()
	}

	// Origin on the hull boundary: touching only
	if penetration.Depth <= 0 {
		return noCollision()
	}

	if !penetration.Converged {
		d.logger.Debug("penetration query stopped early", "iterations", penetration.Iterations, "depth", penetration.Depth)
	}

	return Result{
		Collided:    true,
		Normal:      penetration.Normal,
		Point:       penetration.Point(),
		Penetration: penetration.Depth,
		TOI:         1,
	}
}
