package petri

import (
	"errors"
	"math"

	"github.com/soypat/petri/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxBlobs is the capacity of the per-frame blob table.
const MaxBlobs = 64

// Blob shape parameters. The blob is a sphere perturbed by a rotating triple
// sine product, with its radius animated by a damped recovery oscillation
// keyed off the last feeding event and a slow global breathing term.
const (
	// blobHeight is the fixed height of blob centers above the dish floor
	// plane. Blobs move in the XY plane only.
	blobHeight = 1.0
	// blobSpinRate makes blobs appear to spin against the global time
	// rotation, radians per second.
	blobSpinRate = 0.35

	lumpFreqBase  = 5.0
	lumpFreqSway  = 1.5
	lumpAmplitude = 0.08

	breatheAmplitude = 0.05
	breatheRate      = 1.3

	recoverDepth = 0.3
	recoverDamp  = 2.2
	recoverRate  = 9.0
)

// BlobEntity is one blob organism as seen by the distance field: a planar
// position, a base size, a facing direction and the timestamp of its last
// feeding. Color is carried for the shading pass and does not affect the
// field. Entities are immutable within a frame; the host updates them
// between frames.
type BlobEntity struct {
	Position  r2.Vec
	Size      float64
	Direction float64
	LastAte   float64
	Color     r3.Vec
}

// Center returns the blob's world-space center.
func (e BlobEntity) Center() r3.Vec {
	return r3.Vec{X: e.Position.X, Y: e.Position.Y, Z: blobHeight}
}

// SupportRadius returns a radius certain to contain the blob surface for all
// animation states: the worst-case recovery overshoot plus the lump and
// breathing amplitudes.
func (e BlobEntity) SupportRadius() float64 {
	return e.Size*(1+recoverDepth) + lumpAmplitude + breatheAmplitude
}

// Bounds returns an AABB containing the blob's SDF support region including
// the smooth-union influence margin, suitable for BVH construction.
func (e BlobEntity) Bounds() r3.Box {
	r := e.SupportRadius() + blobUnionBlend
	return r3.Box(d3.NewBox(e.Center(), d3.Elem(2*r)))
}

// errBlobTableFull reports a Push on a full blob table.
var errBlobTableFull = errors.New("petri: blob table full")

// BlobData is the fixed-capacity per-frame blob table. The host clears and
// repopulates it once per frame; this package only reads it.
type BlobData struct {
	Count int
	Blobs [MaxBlobs]BlobEntity
}

// Clear empties the table. Storage is reused.
func (b *BlobData) Clear() {
	b.Count = 0
}

// Push appends a blob and returns its table index. Pushing onto a full
// table leaves the table unchanged and returns an error.
func (b *BlobData) Push(e BlobEntity) (int, error) {
	if b.Count >= MaxBlobs {
		return -1, errBlobTableFull
	}
	i := b.Count
	b.Blobs[i] = e
	b.Count++
	return i, nil
}

// rotateZ rotates p about the Z axis by angle radians.
func rotateZ(p r3.Vec, angle float64) r3.Vec {
	s, c := math.Sin(angle), math.Cos(angle)
	return r3.Vec{
		X: c*p.X - s*p.Y,
		Y: s*p.X + c*p.Y,
		Z: p.Z,
	}
}

// BlobDistance returns the signed distance from p to blob e at time now.
// phase is the blob's table index, decorrelating the animation of
// neighboring blobs.
func BlobDistance(p r3.Vec, e BlobEntity, phase, now float64) float64 {
	q := r3.Sub(p, e.Center())
	// Local frame: undo facing, then undo the global spin so the lumps
	// crawl slowly over the surface.
	q = rotateZ(q, -e.Direction)
	q = rotateZ(q, -now*blobSpinRate)

	freq := lumpFreqBase + lumpFreqSway*math.Sin(0.8*now+phase)
	lump := math.Sin(q.X*freq) * math.Sin(q.Y*freq) * math.Sin(q.Z*freq)

	since := now - e.LastAte
	radius := e.Size * (1 - recoverDepth*math.Exp(-recoverDamp*since)*math.Cos(recoverRate*since))
	radius += lumpAmplitude*lump + breatheAmplitude*math.Sin(breatheRate*now+phase)
	return r3.Norm(q) - radius
}
