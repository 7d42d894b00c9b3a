package camera

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func testView() View {
	return LookAt(
		r3.Vec{X: 0, Y: -16, Z: 11},
		r3.Vec{X: 0, Y: 0, Z: 1},
		r3.Vec{Z: 1},
		40, 0.1, 100,
		640, 360,
	)
}

func TestSetupRayCenterAimsAtTarget(t *testing.T) {
	v := testView()
	w, h := v.Size()
	dir := v.SetupRay(float64(w)/2, float64(h)/2)
	want := r3.Unit(r3.Sub(r3.Vec{X: 0, Y: 0, Z: 1}, v.Eye()))
	if math.Abs(r3.Norm(dir)-1) > 1e-12 {
		t.Fatalf("ray direction not unit length: %v", dir)
	}
	if cos := r3.Dot(dir, want); math.Acos(clamp(cos)) > 1e-6 {
		t.Errorf("center ray %v does not aim at the look-at target, want %v", dir, want)
	}
}

func TestSetupRaySpansFrustum(t *testing.T) {
	v := testView()
	w, h := v.Size()
	center := v.SetupRay(float64(w)/2, float64(h)/2)
	// Corner rays diverge from the center ray but stay within the
	// diagonal half angle of the frustum.
	halfDiag := math.Atan(math.Tan(40*math.Pi/360) * math.Hypot(float64(w)/float64(h), 1))
	for _, px := range [][2]float64{{0, 0}, {float64(w), 0}, {0, float64(h)}, {float64(w), float64(h)}} {
		dir := v.SetupRay(px[0], px[1])
		angle := math.Acos(clamp(r3.Dot(dir, center)))
		if angle < 1e-3 {
			t.Errorf("corner ray %v coincides with center ray", px)
		}
		if angle > halfDiag+1e-6 {
			t.Errorf("corner ray %v outside frustum: angle %.4f > %.4f", px, angle, halfDiag)
		}
	}
	// Screen-space left maps to world-space left of the center ray.
	left := v.SetupRay(0, float64(h)/2)
	right := v.SetupRay(float64(w), float64(h)/2)
	if left.X >= right.X {
		t.Errorf("horizontal axis flipped: left ray %v, right ray %v", left, right)
	}
	// Screen-space up (y=0) maps to a higher ray.
	top := v.SetupRay(float64(w)/2, 0)
	bottom := v.SetupRay(float64(w)/2, float64(h))
	if top.Z <= bottom.Z {
		t.Errorf("vertical axis flipped: top ray %v, bottom ray %v", top, bottom)
	}
}

func TestDepthRoundTrip(t *testing.T) {
	v := testView()
	w, h := v.Size()
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		sx := rnd.Float64() * float64(w)
		sy := rnd.Float64() * float64(h)
		dist := 1 + rnd.Float64()*50 // inside [near, far)
		dir := v.SetupRay(sx, sy)
		p := r3.Add(v.Eye(), r3.Scale(dist, dir))

		depth := v.PointToDepth(p)
		if depth <= -1 || depth >= 1 {
			t.Fatalf("depth %.6f outside normalized range for distance %.2f", depth, dist)
		}
		back := v.DepthToDistance(depth, sx, sy)
		if math.Abs(back-dist) > 1e-6*dist {
			t.Fatalf("round trip distance %.9f, want %.9f (pixel %.1f,%.1f)", back, dist, sx, sy)
		}
	}
}

func TestDepthOrdering(t *testing.T) {
	v := testView()
	w, h := v.Size()
	sx, sy := float64(w)/2, float64(h)/2
	dir := v.SetupRay(sx, sy)
	near := v.PointToDepth(r3.Add(v.Eye(), r3.Scale(2, dir)))
	far := v.PointToDepth(r3.Add(v.Eye(), r3.Scale(40, dir)))
	if near >= far {
		t.Errorf("nearer point has depth %.6f, farther %.6f; want increasing", near, far)
	}
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
