package render

import (
	"math"

	"github.com/fogleman/fauxgl"
	"gonum.org/v1/gonum/spatial/r3"
)

// Material carries the shading inputs of a raymarched surface. The blob
// material is mostly fixed; only the emissive intensity is animated by the
// forward pass.
type Material struct {
	Base              fauxgl.Color
	Emissive          fauxgl.Color
	EmissiveIntensity float64
	Reflectance       float64
	Roughness         float64
	Metallic          float64
}

// Surface is a shaded point: world position, unit normal, the occlusion and
// thickness estimates, and the material to evaluate.
type Surface struct {
	Point     r3.Vec
	Normal    r3.Vec
	Occlusion float64
	Thickness float64
	Material  Material
}

// Lighter turns a surface and the viewing direction into a final color. The
// host pipeline supplies its own physically based evaluator; Directional is
// the standalone default.
type Lighter interface {
	Shade(s Surface, viewDir r3.Vec) fauxgl.Color
}

// Directional is a single directional light with a constant ambient term
// and a Schlick-style rim highlight.
type Directional struct {
	// Direction the light travels, need not be normalized.
	Direction r3.Vec
	Ambient   float64
	Intensity float64
}

// Shade implements Lighter.
func (l Directional) Shade(s Surface, viewDir r3.Vec) fauxgl.Color {
	toLight := r3.Unit(r3.Scale(-1, l.Direction))
	diffuse := math.Max(0, r3.Dot(s.Normal, toLight)) * l.Intensity

	facing := math.Max(0, r3.Dot(s.Normal, r3.Scale(-1, viewDir)))
	rim := s.Material.Reflectance * math.Pow(1-facing, 5) * (1 - s.Material.Roughness)

	lit := l.Ambient*s.Occlusion + diffuse
	c := s.Material.Base.MulScalar(lit)
	c = c.Add(fauxgl.Gray(rim))
	c = c.Add(s.Material.Emissive.MulScalar(s.Material.EmissiveIntensity))
	return c.Min(fauxgl.White).Opaque()
}
