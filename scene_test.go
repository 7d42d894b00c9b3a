package petri

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func testScene(positions ...r2.Vec) *Scene {
	s := &Scene{Now: 2.5}
	for _, pos := range positions {
		if _, err := s.Blobs.Push(BlobEntity{Position: pos, Size: 0.6, LastAte: -100}); err != nil {
			panic(err)
		}
	}
	if err := s.BuildTree(); err != nil {
		panic(err)
	}
	return s
}

func TestSceneEmptyTreeStillHasDish(t *testing.T) {
	s := &Scene{}
	if err := s.BuildTree(); err != nil {
		t.Fatal(err)
	}
	if s.Tree != nil {
		t.Fatal("empty scene built a non-nil tree")
	}
	m := s.NewMarcher()
	// Straight down onto the vessel from above its center.
	origin := r3.Vec{Z: 30}
	got := m.March(origin, r3.Vec{Z: -1}, 100)
	if got >= 100 {
		t.Fatal("ray from above missed the dish")
	}
	hitZ := 30 - got
	// The outer vessel top: dish center height plus the shell-scaled half
	// height and rim.
	wantZ := dishCenter.Z + dishShellScale*(dishHalfHeight+dishRim)
	if math.Abs(hitZ-wantZ) > 5*MarchEpsilon {
		t.Errorf("dish top hit at z=%.4f, want %.4f", hitZ, wantZ)
	}
}

func TestSceneMarchHitsBlob(t *testing.T) {
	s := testScene(r2.Vec{X: 1, Y: 0})
	m := s.NewMarcher()
	blob := s.Blobs.Blobs[0]
	origin := r3.Add(blob.Center(), r3.Vec{X: 5})
	dir := r3.Vec{X: -1}
	got := m.March(origin, dir, 100)
	if got >= 100 {
		t.Fatal("ray aimed at blob missed")
	}
	// The hit must land within the blob's support region.
	p := r3.Add(origin, r3.Scale(got, dir))
	if r3.Norm(r3.Sub(p, blob.Center())) > blob.SupportRadius()+blobUnionBlend {
		t.Errorf("hit point %v outside blob influence region", p)
	}
}

func TestSceneDistancePositiveOutside(t *testing.T) {
	s := testScene(r2.Vec{}, r2.Vec{X: 3, Y: 2}, r2.Vec{X: -4, Y: 1})
	m := s.NewMarcher()
	// Descending toward the vessel from far above: every sample before the
	// hit is positive and the sequence decreases toward the surface.
	origin := r3.Vec{X: 2, Y: 1, Z: 40}
	dir := r3.Vec{Z: -1}
	m.hits.Reset()
	s.Tree.RayHits(origin, dir, &m.hits)
	prev := math.Inf(1)
	for step := 0.0; step < 36; step += 0.5 {
		d := m.Evaluate(r3.Add(origin, r3.Scale(step, dir)))
		if d <= 0 {
			break
		}
		if d > prev+1e-9 {
			t.Fatalf("distance increased while approaching the vessel: %.6f after %.6f at step %.1f", d, prev, step)
		}
		prev = d
	}
}

func TestSceneSmoothUnionContinuity(t *testing.T) {
	// Sample the field along a segment crossing the seam of two blended
	// blobs; the field must not jump faster than a small Lipschitz bound.
	s := testScene(r2.Vec{X: -0.7}, r2.Vec{X: 0.7})
	m := s.NewMarcher()
	origin := r3.Vec{X: -3, Z: blobHeight}
	dir := r3.Vec{X: 1}
	m.hits.Reset()
	s.Tree.RayHits(origin, dir, &m.hits)
	if m.hits.Len() != 2 {
		t.Fatalf("ray through both blobs collected %d hits, want 2", m.hits.Len())
	}
	const delta = 1e-4
	prev := m.Evaluate(origin)
	for x := -3 + delta; x < 3; x += delta {
		d := m.Evaluate(r3.Vec{X: x, Z: blobHeight})
		if math.Abs(d-prev) > 4*delta {
			t.Fatalf("field jump %.6g over %.6g at x=%.4f", math.Abs(d-prev), delta, x)
		}
		prev = d
	}
}

func TestMarcherTruncation(t *testing.T) {
	s := &Scene{}
	// More co-located blobs than the per-ray hit set can hold.
	for i := 0; i < 15; i++ {
		if _, err := s.Blobs.Push(BlobEntity{Position: r2.Vec{X: float64(i) * 0.01}, Size: 0.5, LastAte: -100}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.BuildTree(); err != nil {
		t.Fatal(err)
	}
	m := s.NewMarcher()
	m.March(r3.Vec{X: -5, Z: blobHeight}, r3.Vec{X: 1}, 100)
	if !m.Truncated() {
		t.Error("overfull candidate set not reported as truncated")
	}
	// A clear ray afterwards resets the flag.
	m.March(r3.Vec{X: -5, Z: 30}, r3.Vec{X: 1}, 100)
	if m.Truncated() {
		t.Error("truncation flag leaked into the next ray")
	}
}
