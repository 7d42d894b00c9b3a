package render

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// DepthSampler provides per-fragment depth samples from a previously
// rendered pass. The forward pass uses it both to bound marches by known
// geometry and to discard fragments that duplicate an earlier hit.
type DepthSampler interface {
	// DepthSample returns the normalized device depth at pixel (x, y)
	// and whether that pixel holds a hit at all.
	DepthSample(x, y int) (depth float64, ok bool)
}

// GBuffer is the output of the depth/normal pass: per-pixel normalized
// device depth and the surface normal encoded to [0,1] float32 planes, the
// storage precision of a hardware normal target.
type GBuffer struct {
	width, height int
	depth         []float64
	normal        []float32
}

// NewGBuffer returns a cleared buffer: every pixel a miss.
func NewGBuffer(width, height int) *GBuffer {
	g := &GBuffer{
		width:  width,
		height: height,
		depth:  make([]float64, width*height),
		normal: make([]float32, 3*width*height),
	}
	g.Clear()
	return g
}

// Size returns the buffer dimensions in pixels.
func (g *GBuffer) Size() (width, height int) { return g.width, g.height }

// Clear marks every pixel as a miss.
func (g *GBuffer) Clear() {
	for i := range g.depth {
		g.depth[i] = math.Inf(1)
	}
	for i := range g.normal {
		g.normal[i] = 0
	}
}

// SetHit stores a hit: the fragment depth and its encoded normal.
func (g *GBuffer) SetHit(x, y int, depth float64, n r3.Vec) {
	i := y*g.width + x
	g.depth[i] = depth
	g.normal[3*i+0] = encodeNormal(n.X)
	g.normal[3*i+1] = encodeNormal(n.Y)
	g.normal[3*i+2] = encodeNormal(n.Z)
}

// DepthSample implements DepthSampler.
func (g *GBuffer) DepthSample(x, y int) (float64, bool) {
	d := g.depth[y*g.width+x]
	return d, !math.IsInf(d, 1)
}

// NormalAt decodes the stored normal at (x, y). Returns the zero vector for
// a miss.
func (g *GBuffer) NormalAt(x, y int) r3.Vec {
	i := y*g.width + x
	if math.IsInf(g.depth[i], 1) {
		return r3.Vec{}
	}
	n := r3.Vec{
		X: decodeNormal(g.normal[3*i+0]),
		Y: decodeNormal(g.normal[3*i+1]),
		Z: decodeNormal(g.normal[3*i+2]),
	}
	return r3.Unit(n)
}

// encodeNormal remaps a component from [-1,1] to [0,1] float32 storage.
func encodeNormal(v float64) float32 {
	f := float32(0.5*v + 0.5)
	return math32.Min(math32.Max(f, 0), 1)
}

func decodeNormal(f float32) float64 {
	return float64(2*f - 1)
}
