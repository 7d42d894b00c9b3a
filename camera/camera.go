// Package camera derives world-space rays from screen fragments and
// converts between world points and normalized device depth. Matrix algebra
// is delegated to fauxgl, whose conventions (LookAt view matrix, OpenGL
// clip space with depth in [-1,1]) this package follows throughout.
package camera

import (
	"github.com/fogleman/fauxgl"
	"gonum.org/v1/gonum/spatial/r3"
)

// View bundles the per-frame camera state: view and projection matrices,
// their inverses, and the viewport size. It is immutable after construction
// and safe for concurrent use by many fragments.
type View struct {
	width, height int
	eye           r3.Vec

	worldToView fauxgl.Matrix
	viewToWorld fauxgl.Matrix
	invProj     fauxgl.Matrix
	viewProj    fauxgl.Matrix
}

// LookAt constructs a perspective view from eye toward center. fovy is the
// vertical field of view in degrees.
func LookAt(eye, center, up r3.Vec, fovy, near, far float64, width, height int) View {
	aspect := float64(width) / float64(height)
	worldToView := fauxgl.LookAt(fg(eye), fg(center), fg(up))
	proj := fauxgl.Perspective(fovy, aspect, near, far)
	return View{
		width:       width,
		height:      height,
		eye:         eye,
		worldToView: worldToView,
		viewToWorld: worldToView.Inverse(),
		invProj:     proj.Inverse(),
		viewProj:    proj.Mul(worldToView),
	}
}

// Size returns the viewport dimensions in pixels.
func (v View) Size() (width, height int) { return v.width, v.height }

// Eye returns the camera world position.
func (v View) Eye() r3.Vec { return v.eye }

// SetupRay maps the screen-space position (sx, sy), in pixels with the
// origin at the top-left, to a world-space unit ray direction from the eye.
// The pixel is lifted to the far plane marker in NDC, unprojected to view
// space, and rotated (not translated) into the world.
func (v View) SetupRay(sx, sy float64) r3.Vec {
	ndcX := 2*sx/float64(v.width) - 1
	ndcY := 1 - 2*sy/float64(v.height)
	h := v.invProj.MulPositionW(fauxgl.Vector{X: ndcX, Y: ndcY, Z: 1})
	dir := fauxgl.Vector{X: h.X / h.W, Y: h.Y / h.W, Z: h.Z / h.W}
	return r3.Unit(rg(v.viewToWorld.MulDirection(dir)))
}

// PointToDepth projects the world point p and returns its normalized device
// depth: the clip-space Z after perspective division, with no further
// remapping.
func (v View) PointToDepth(p r3.Vec) float64 {
	h := v.viewProj.MulPositionW(fg(p))
	return h.Z / h.W
}

// DepthToDistance inverts PointToDepth for the fragment at (sx, sy):
// it reconstructs the world point at the given normalized depth and returns
// its Euclidean distance from the eye. Used to bound a march by an already
// rasterized depth sample.
func (v View) DepthToDistance(depth, sx, sy float64) float64 {
	ndcX := 2*sx/float64(v.width) - 1
	ndcY := 1 - 2*sy/float64(v.height)
	h := v.invProj.MulPositionW(fauxgl.Vector{X: ndcX, Y: ndcY, Z: depth})
	view := fauxgl.Vector{X: h.X / h.W, Y: h.Y / h.W, Z: h.Z / h.W}
	world := rg(v.viewToWorld.MulPosition(view))
	return r3.Norm(r3.Sub(world, v.eye))
}

func fg(v r3.Vec) fauxgl.Vector {
	return fauxgl.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

func rg(v fauxgl.Vector) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}
