package petri

import (
	"math"

	"github.com/soypat/petri/bvh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scene SDF composition blend radii.
const (
	// blobUnionBlend merges blobs into each other and into the hit set
	// accumulator.
	blobUnionBlend = 0.6
	// dishUnionBlend merges the blob field into the vessel wall.
	dishUnionBlend = 0.4
)

// Scene is the per-frame read-only scene description: the blob table, the
// acceleration tree over it, and the global time. The host refreshes the
// table and rebuilds the tree whenever blobs move or resize; no incremental
// tree update exists.
type Scene struct {
	Blobs BlobData
	Tree  bvh.Tree
	// Now is the global monotonic time in seconds driving all animation.
	Now float64
}

// BuildTree rebuilds the acceleration tree from the current blob table.
// Call after every table refresh. A scene with no blobs gets an empty tree,
// which is valid: every ray misses the blob field and only the dish
// remains.
func (s *Scene) BuildTree() error {
	if s.Blobs.Count == 0 {
		s.Tree = nil
		return nil
	}
	boxes := make([]r3.Box, s.Blobs.Count)
	for i := 0; i < s.Blobs.Count; i++ {
		boxes[i] = s.Blobs.Blobs[i].Bounds()
	}
	tree, err := bvh.Build(boxes)
	if err != nil {
		return err
	}
	s.Tree = tree
	return nil
}

// Marcher owns the per-ray working state for marching a Scene: the bounded
// hit set produced by tree traversal. A Marcher must not be shared between
// concurrently evaluated rays; each rendering worker constructs its own.
type Marcher struct {
	scene *Scene
	hits  bvh.Hits
}

// NewMarcher returns a marcher evaluating s. The returned value is cheap;
// construct one per worker, not per ray.
func (s *Scene) NewMarcher() *Marcher {
	return &Marcher{scene: s}
}

// March traces a ray from origin along unit direction dir up to maxDist.
// Traversal of the scene tree runs once, up front; its cost is amortized
// over all sphere tracing steps of the ray. Returns the traveled distance,
// or maxDist on a miss.
func (m *Marcher) March(origin, dir r3.Vec, maxDist float64) float64 {
	m.hits.Reset()
	m.scene.Tree.RayHits(origin, dir, &m.hits)
	return MarchRay(m, origin, dir, maxDist)
}

// Truncated reports whether the last March dropped candidate blobs because
// the hit set capacity was reached.
func (m *Marcher) Truncated() bool {
	return m.hits.Truncated
}

// Evaluate returns the scene distance at p considering only the blobs
// collected for the current ray. It is side-effect-free and is the Field
// the surface estimators run against after a hit.
func (m *Marcher) Evaluate(p r3.Vec) float64 {
	s := m.scene
	d := farDistance
	for i := 0; i < m.hits.Len(); i++ {
		idx := m.hits.At(i)
		b := BlobDistance(p, s.Blobs.Blobs[idx], float64(idx), s.Now)
		d = poly(b, d, blobUnionBlend)
	}
	// The negated dish makes everything outside the vessel solid; the
	// enlarged shell then clips that half-space down to a thin wall.
	d = poly(-Dish(p), d, dishUnionBlend)
	return math.Max(d, dishShell(p))
}

var _ Field = (*Marcher)(nil)
