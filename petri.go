// Package petri implements a signed distance field description of a dish of
// deformable blob organisms and the numerical machinery to raymarch it:
// polynomial smooth booleans, sphere tracing, and finite-difference surface
// property estimation. The scene is pruned per ray with the bvh package and
// rendered by the render package.
package petri

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	pi  = math.Pi
	tau = 2 * pi

	// farDistance initializes the scene distance accumulator. Any real
	// surface of the scene is nearer than this.
	farDistance = 9000.0

	// MarchEpsilon is the sphere tracing convergence distance.
	MarchEpsilon = 0.01
	// MarchMaxSteps bounds the sphere tracing step budget for a single ray.
	MarchMaxSteps = 64

	// normalEpsilon is the offset of the tetrahedral gradient taps.
	normalEpsilon = 1.7e-4
)

// Field is the interface to a signed distance field. It is implemented by
// the scene Marcher and by the synthetic fields used in tests.
type Field interface {
	// Evaluate returns the minimum distance of the field's surface to
	// point p. The distance is negative if p is inside the surface.
	Evaluate(p r3.Vec) float64
}

// MinFunc is a minimum function for SDF blending.
type MinFunc func(a, b float64) float64

// MaxFunc is a maximum function for SDF blending.
type MaxFunc func(a, b float64) float64

// poly is the quadratic polynomial smooth minimum. Unlike a hard min it is
// C1 continuous across the blend region, which keeps finite-difference
// normals stable on blended surfaces.
func poly(a, b, k float64) float64 {
	h := Clamp(0.5+0.5*(b-a)/k, 0, 1)
	return Mix(b, a, h) - k*h*(1-h)
}

// PolyMin returns a smooth union function with blend radius k
// (a bigger k gives a bigger fillet).
func PolyMin(k float64) MinFunc {
	return func(a, b float64) float64 {
		return poly(a, b, k)
	}
}

// PolyMax returns a smooth intersection function with blend radius k.
func PolyMax(k float64) MaxFunc {
	return func(a, b float64) float64 {
		return -poly(-a, -b, k)
	}
}

// Clamp x between a and b, assume a <= b.
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Mix does a linear interpolation from x to y, a = [0,1].
func Mix(x, y, a float64) float64 {
	return x + a*(y-x)
}

// MarchRay sphere-traces field f from origin along unit direction dir.
// Each step advances by the field value, which never oversteps the nearest
// surface. It returns the traveled distance on convergence (within
// MarchEpsilon, plus the residual for sub-step precision) and maxDist on a
// miss, whether by distance or by step budget.
func MarchRay(f Field, origin, dir r3.Vec, maxDist float64) float64 {
	t := 0.0
	pos := origin
	for i := 0; i < MarchMaxSteps; i++ {
		d := f.Evaluate(pos)
		if d <= MarchEpsilon {
			return t + d
		}
		t += d
		if t >= maxDist {
			return maxDist
		}
		pos = r3.Add(pos, r3.Scale(d, dir))
	}
	return maxDist
}

// Normal estimates the surface normal of f at p with a four-tap tetrahedral
// gradient. p need not lie exactly on the surface.
func Normal(f Field, p r3.Vec) r3.Vec {
	const e = normalEpsilon
	k0 := r3.Vec{X: 1, Y: -1, Z: -1}
	k1 := r3.Vec{X: -1, Y: -1, Z: 1}
	k2 := r3.Vec{X: -1, Y: 1, Z: -1}
	k3 := r3.Vec{X: 1, Y: 1, Z: 1}
	n := r3.Scale(f.Evaluate(r3.Add(p, r3.Scale(e, k0))), k0)
	n = r3.Add(n, r3.Scale(f.Evaluate(r3.Add(p, r3.Scale(e, k1))), k1))
	n = r3.Add(n, r3.Scale(f.Evaluate(r3.Add(p, r3.Scale(e, k2))), k2))
	n = r3.Add(n, r3.Scale(f.Evaluate(r3.Add(p, r3.Scale(e, k3))), k3))
	return r3.Unit(n)
}

// occlusionMarch is the shared accumulation march behind AmbientOcclusion
// and Thickness. sign selects which side of the surface is sampled.
func occlusionMarch(f Field, p, dir r3.Vec, samples int, sign float64) float64 {
	const (
		exitThreshold = 0.35
		decay         = 0.95
	)
	acc := 0.0
	sca := 1.0
	for i := 1; i <= samples; i++ {
		h := 0.01 + 0.12*float64(i)/float64(samples)
		d := sign * f.Evaluate(r3.Add(p, r3.Scale(h, dir)))
		acc += (h - d) * sca
		if acc > exitThreshold {
			break
		}
		sca *= decay
	}
	return Clamp(1-3*acc, 0, 1)
}

// AmbientOcclusion estimates how occluded the surface of f is at p with
// normal n. Returns 1 for a fully open surface, 0 for fully occluded.
func AmbientOcclusion(f Field, p, n r3.Vec) float64 {
	return occlusionMarch(f, p, n, 5, 1)
}

// Thickness estimates how much material lies behind the surface of f at p
// by running the occlusion march backwards: along the inverted normal
// against the negated field. Returns near 1 deep inside thick material and
// falls toward 0 on thin shells. It is not a true thickness, just a cheap
// translucency driver.
func Thickness(f Field, p, n r3.Vec) float64 {
	return occlusionMarch(f, p, r3.Scale(-1, n), 9, -1)
}
