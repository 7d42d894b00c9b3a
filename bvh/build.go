package bvh

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/soypat/petri/internal/d3"
	"github.com/soypat/petri/log"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoVolumes is returned by Build for an empty work list.
var ErrNoVolumes = errors.New("bvh: no volumes to partition")

type item struct {
	box      r3.Box
	centroid r3.Vec
	index    int32
}

type builder struct {
	nodes []Node

	// Stats.
	leafs    int
	maxDepth int
}

// Build constructs a tree over boxes. boxes[i] must contain the support
// region of entity i; leaf i of the resulting tree references entity index
// i. Splits are chosen by surface area heuristic over centroid-sorted
// candidates on all three axes, which keeps the tree shallow enough for the
// bounded traversal stack. The tree is flattened depth-first: each branch
// is immediately followed by its left subtree, then its right subtree.
func Build(boxes []r3.Box) (Tree, error) {
	if len(boxes) == 0 {
		return nil, ErrNoVolumes
	}
	items := make([]item, len(boxes))
	for i, bb := range boxes {
		items[i] = item{
			box:      bb,
			centroid: d3.Box(bb).Center(),
			index:    int32(i),
		}
	}
	b := &builder{nodes: make([]Node, 0, 2*len(boxes)-1)}
	start := time.Now()
	b.split(items, 1)
	log.New("bvh").Debugf(
		"partitioned %d volumes: %d nodes, %d leafs, max depth %d (%s)",
		len(boxes), len(b.nodes), b.leafs, b.maxDepth, time.Since(start),
	)
	return Tree(b.nodes), nil
}

// split partitions items into a subtree and returns its root node index.
func (b *builder) split(items []item, depth int) int32 {
	if depth > b.maxDepth {
		b.maxDepth = depth
	}
	if len(items) == 1 {
		b.nodes = append(b.nodes, Node{
			Min:   items[0].box.Min,
			Max:   items[0].box.Max,
			Left:  LeafSentinel,
			Right: items[0].index,
		})
		b.leafs++
		return int32(len(b.nodes) - 1)
	}

	bestAxis, bestIndex := 0, 1
	bestCost := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		sortByCentroid(items, axis)
		k, cost := findSplit(items)
		if cost < bestCost {
			bestAxis, bestIndex, bestCost = axis, k, cost
		}
	}
	// The last axis evaluated left its ordering behind; restore the
	// winning one.
	if bestAxis != 2 {
		sortByCentroid(items, bestAxis)
	}

	bounds := mergeBounds(items)
	own := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{Min: bounds.Min, Max: bounds.Max})
	b.nodes[own].Left = b.split(items[:bestIndex], depth+1)
	b.nodes[own].Right = b.split(items[bestIndex:], depth+1)
	return own
}

func sortByCentroid(items []item, axis int) {
	sort.SliceStable(items, func(i, j int) bool {
		return centroidAxis(items[i], axis) < centroidAxis(items[j], axis)
	})
}

func centroidAxis(it item, axis int) float64 {
	switch axis {
	case 0:
		return it.centroid.X
	case 1:
		return it.centroid.Y
	default:
		return it.centroid.Z
	}
}

// findSplit returns the split index in [1, len) minimizing the surface area
// heuristic: area of each side scaled by the number of volumes on it.
func findSplit(items []item) (index int, cost float64) {
	index, cost = 1, math.Inf(1)
	for k := 1; k < len(items); k++ {
		c := surfaceArea(mergeBounds(items[:k]))*float64(k) +
			surfaceArea(mergeBounds(items[k:]))*float64(len(items)-k)
		if c < cost {
			index, cost = k, c
		}
	}
	return index, cost
}

func mergeBounds(items []item) r3.Box {
	bb := d3.Box(items[0].box)
	for _, it := range items[1:] {
		bb = bb.Extend(d3.Box(it.box))
	}
	return r3.Box(bb)
}

func surfaceArea(bb r3.Box) float64 {
	e := r3.Sub(bb.Max, bb.Min)
	return 2 * (e.X*e.Y + e.X*e.Z + e.Y*e.Z)
}
