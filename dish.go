package petri

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Dish geometry. The dish is a solid rounded cylinder; the scene evaluator
// carves it into a thin-walled vessel by intersecting the space outside the
// dish with a slightly enlarged copy.
const (
	dishRadius     = 10.0
	dishRim        = 0.25
	dishHalfHeight = 1.5
	// dishShellScale is the uniform enlargement of the outer shell copy.
	// The gap between the two surfaces is the vessel wall thickness.
	dishShellScale = 1.06

	// PlayRadius is the largest planar distance from the dish center at
	// which the host should keep blob centers.
	PlayRadius = 9.8
)

// dishCenter positions the vessel so its floor sits just below the blob
// plane.
var dishCenter = r3.Vec{X: 0, Y: 0, Z: 1.25}

// RoundedCylinder returns the signed distance from p to a vertical capped
// cylinder with a rounded rim, centered on the origin. The distance is
// computed by the 2D radial/height decomposition: the radial and axial
// excesses combined with the rounded-box identity.
func RoundedCylinder(p r3.Vec, inner, rim, halfHeight float64) float64 {
	dx := math.Hypot(p.X, p.Y) - inner
	dy := math.Abs(p.Z) - halfHeight
	inside := math.Min(math.Max(dx, dy), 0)
	outside := math.Hypot(math.Max(dx, 0), math.Max(dy, 0))
	return inside + outside - rim
}

// Dish returns the signed distance from p to the solid dish cylinder,
// positive outside.
func Dish(p r3.Vec) float64 {
	return RoundedCylinder(r3.Sub(p, dishCenter), dishRadius, dishRim, dishHalfHeight)
}

// dishShell is the dish uniformly scaled about its center by
// dishShellScale. Scaling the evaluation point down and the resulting
// distance up keeps the field metrically correct.
func dishShell(p r3.Vec) float64 {
	q := r3.Scale(1/dishShellScale, r3.Sub(p, dishCenter))
	return dishShellScale * RoundedCylinder(q, dishRadius, dishRim, dishHalfHeight)
}
