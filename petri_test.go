package petri

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// sphereField is the analytic unit test field: a sphere of radius r at the
// origin.
type sphereField struct {
	r float64
}

func (s sphereField) Evaluate(p r3.Vec) float64 {
	return r3.Norm(p) - s.r
}

// planeField is the half space z <= 0.
type planeField struct{}

func (planeField) Evaluate(p r3.Vec) float64 { return p.Z }

func TestMarchRayConverges(t *testing.T) {
	const (
		radius   = 1.0
		standoff = 5.0
		rays     = 200
	)
	f := sphereField{r: radius}
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < rays; i++ {
		// Random eye on a sphere of radius standoff, aimed through the
		// center. The analytic hit distance is standoff-radius.
		origin := r3.Scale(standoff, randomUnit(rnd))
		dir := r3.Unit(r3.Scale(-1, origin))
		got := MarchRay(f, origin, dir, 100)
		want := standoff - radius
		if math.Abs(got-want) > 2*MarchEpsilon {
			t.Errorf("ray %d converged at %.5f, want %.5f", i, got, want)
		}
	}
}

func TestMarchRayMiss(t *testing.T) {
	const maxDist = 50.0
	f := sphereField{r: 1}
	// Aimed directly away from the only surface.
	origin := r3.Vec{X: 5}
	dir := r3.Vec{X: 1}
	if got := MarchRay(f, origin, dir, maxDist); got != maxDist {
		t.Errorf("missing ray returned %.5f, want maxDist %.5f", got, maxDist)
	}
	// Perpendicular miss with a generous margin.
	origin = r3.Vec{X: 5, Y: 3}
	dir = r3.Vec{Y: 1}
	if got := MarchRay(f, origin, dir, maxDist); got != maxDist {
		t.Errorf("grazing ray returned %.5f, want maxDist %.5f", got, maxDist)
	}
}

func TestNormalSphere(t *testing.T) {
	const maxAngle = math.Pi / 180 // 1 degree
	f := sphereField{r: 2}
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		radial := randomUnit(rnd)
		p := r3.Scale(2, radial)
		n := Normal(f, p)
		cos := r3.Dot(n, radial)
		if math.Acos(Clamp(cos, -1, 1)) > maxAngle {
			t.Errorf("normal at %v deviates from radial direction: got %v", p, n)
		}
	}
}

func TestPolyMinBounds(t *testing.T) {
	const k = 0.6
	smin := PolyMin(k)
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		a := rnd.Float64()*8 - 4
		b := rnd.Float64()*8 - 4
		got := smin(a, b)
		hard := math.Min(a, b)
		if got > hard+1e-12 {
			t.Fatalf("smooth min %.6f above hard min %.6f for a=%.4f b=%.4f", got, hard, a, b)
		}
		if got < hard-k/4-1e-12 {
			t.Fatalf("smooth min %.6f undercuts hard min by more than k/4 for a=%.4f b=%.4f", got, a, b)
		}
		// Outside the blend region the smooth min is the hard min.
		if math.Abs(a-b) > k && math.Abs(got-hard) > 1e-12 {
			t.Fatalf("smooth min %.6f differs from hard min outside blend region a=%.4f b=%.4f", got, a, b)
		}
	}
}

func TestPolyMaxMirrorsPolyMin(t *testing.T) {
	const k = 0.4
	smin, smax := PolyMin(k), PolyMax(k)
	rnd := rand.New(rand.NewSource(4))
	for i := 0; i < 1000; i++ {
		a := rnd.Float64()*8 - 4
		b := rnd.Float64()*8 - 4
		if got, want := smax(a, b), -smin(-a, -b); math.Abs(got-want) > 1e-12 {
			t.Fatalf("smooth max %.6f, want mirrored smooth min %.6f", got, want)
		}
	}
}

func TestAmbientOcclusionOpenAndBlocked(t *testing.T) {
	// A flat half space is fully open along its normal.
	open := AmbientOcclusion(planeField{}, r3.Vec{}, r3.Vec{Z: 1})
	if open < 0.99 {
		t.Errorf("open plane occlusion = %.4f, want ~1", open)
	}
	// A point in the seam of two perpendicular half spaces sees blocked
	// samples along the first plane's normal.
	corner := cornerField{}
	blocked := AmbientOcclusion(corner, r3.Vec{}, r3.Vec{Z: 1})
	if blocked >= open {
		t.Errorf("corner occlusion %.4f not below open plane %.4f", blocked, open)
	}
}

// cornerField is the intersection of two half spaces meeting at the origin.
type cornerField struct{}

func (cornerField) Evaluate(p r3.Vec) float64 { return math.Min(p.Z, p.X) }

func TestThicknessThickVersusThin(t *testing.T) {
	solid := sphereField{r: 1}
	shell := shellField{r: 1, w: 0.02}
	p := r3.Vec{Z: 1}
	n := r3.Vec{Z: 1}
	thick := Thickness(solid, p, n)
	thin := Thickness(shell, r3.Vec{Z: 1 + shell.w}, n)
	if thick < 0.9 {
		t.Errorf("solid sphere thickness = %.4f, want ~1", thick)
	}
	if thin >= thick {
		t.Errorf("thin shell thickness %.4f not below solid %.4f", thin, thick)
	}
}

// shellField is a hollow sphere of radius r with wall half width w.
type shellField struct {
	r, w float64
}

func (s shellField) Evaluate(p r3.Vec) float64 {
	return math.Abs(r3.Norm(p)-s.r) - s.w
}

func randomUnit(rnd *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{
			X: rnd.Float64()*2 - 1,
			Y: rnd.Float64()*2 - 1,
			Z: rnd.Float64()*2 - 1,
		}
		if n := r3.Norm(v); n > 1e-3 && n <= 1 {
			return r3.Scale(1/n, v)
		}
	}
}
