// Package bvh implements a flat axis-aligned bounding volume hierarchy over
// scene entities and the per-ray traversal that collects the entities whose
// bounds a ray intersects.
package bvh

import (
	"sync"

	"github.com/soypat/petri/log"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// LeafSentinel in Node.Left marks a leaf; Node.Right then holds the
	// entity index instead of a child index.
	LeafSentinel = -1

	// MaxHits is the capacity of a per-ray hit set.
	MaxHits = 10

	// stackSize bounds the explicit traversal stack. The builder produces
	// trees no deeper than the entity count, which is far below this.
	stackSize = 128
)

// Node is one node of the flat tree. Branch nodes store child indices in
// Left and Right; leaves are tagged with LeafSentinel in Left and store
// their entity index in Right.
type Node struct {
	Min, Max    r3.Vec
	Left, Right int32
}

// IsLeaf reports whether n references an entity rather than children.
func (n Node) IsLeaf() bool { return n.Left == LeafSentinel }

// Entity returns the entity index of a leaf node.
func (n Node) Entity() int32 { return n.Right }

// Bounds returns the node AABB as a box.
func (n Node) Bounds() r3.Box { return r3.Box{Min: n.Min, Max: n.Max} }

// Tree is a flat node array with the root at index 0. It is built once per
// frame by Build and is read-only during rendering.
type Tree []Node

// Hits is a bounded, ordered per-ray collection of entity indices. It is
// private working state of a single ray: never share one Hits value across
// concurrently traced rays.
type Hits struct {
	idx       [MaxHits]int32
	n         int
	Truncated bool
}

// Reset empties the set for the next ray.
func (h *Hits) Reset() {
	h.n = 0
	h.Truncated = false
}

// Len returns the number of collected entities.
func (h *Hits) Len() int { return h.n }

// At returns the i-th collected entity index in traversal order.
func (h *Hits) At(i int) int32 { return h.idx[i] }

// push appends an entity index, clamping at capacity.
func (h *Hits) push(entity int32) {
	if h.n >= MaxHits {
		h.Truncated = true
		return
	}
	h.idx[h.n] = entity
	h.n++
}

var warnStackOnce sync.Once

// RayHits collects into out every leaf entity whose AABB the ray from
// origin along dir intersects. dir need not be normalized. Traversal is
// depth-first with an explicit bounded stack; saturation of the stack or of
// out drops further work instead of corrupting memory, and out.Truncated
// records that the set is incomplete.
func (t Tree) RayHits(origin, dir r3.Vec, out *Hits) {
	if len(t) == 0 {
		return
	}
	inv := r3.Vec{X: 1 / dir.X, Y: 1 / dir.Y, Z: 1 / dir.Z}

	var stack [stackSize]int32
	stack[0] = 0
	sp := 1
	for sp > 0 {
		sp--
		n := t[stack[sp]]
		if !slabHit(n, origin, inv) {
			continue
		}
		if n.IsLeaf() {
			out.push(n.Entity())
			continue
		}
		if sp+2 > stackSize {
			// Drop this subtree rather than overflow. Should be
			// unreachable with trees from Build.
			warnStackOnce.Do(func() {
				log.New("bvh").Warningf("traversal stack saturated at %d entries; tree too deep", stackSize)
			})
			continue
		}
		stack[sp] = n.Left
		stack[sp+1] = n.Right
		sp += 2
	}
}

// slabHit is the slab-method ray/AABB test with precomputed reciprocal
// direction. Rejects boxes entirely behind the origin (tmax < 0) and
// non-overlapping slab intervals (tmin > tmax).
func slabHit(n Node, origin, inv r3.Vec) bool {
	t1 := (n.Min.X - origin.X) * inv.X
	t2 := (n.Max.X - origin.X) * inv.X
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	tmin, tmax := t1, t2

	t1 = (n.Min.Y - origin.Y) * inv.Y
	t2 = (n.Max.Y - origin.Y) * inv.Y
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > tmin {
		tmin = t1
	}
	if t2 < tmax {
		tmax = t2
	}

	t1 = (n.Min.Z - origin.Z) * inv.Z
	t2 = (n.Max.Z - origin.Z) * inv.Z
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > tmin {
		tmin = t1
	}
	if t2 < tmax {
		tmax = t2
	}

	return tmax >= 0 && tmin <= tmax
}
