// Package render drives the raymarching passes over a petri scene: a
// depth/normal prepass and a forward lit pass, evaluated by a pool of
// workers each owning private per-ray marching state, and assembled into
// images.
package render

import (
	"image"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/petri"
	"github.com/soypat/petri/camera"
	"github.com/soypat/petri/log"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// FarCutoff is the march distance treated as a miss in the absence of
	// a closer depth bound.
	FarCutoff = 1000.0

	// depthCoincidenceEps: a forward hit whose depth matches the prepass
	// sample this closely contributes nothing new and is discarded. This
	// is a tolerance heuristic; hits just outside it can still z-fight
	// the prepass surface.
	depthCoincidenceEps = 1e-8
)

// ViewConfig positions the camera for a frame.
type ViewConfig struct {
	// Eye is where the camera is located.
	Eye r3.Vec
	// LookAt is the point the camera looks at.
	LookAt r3.Vec
	// Up is the world up direction.
	Up r3.Vec
	// FOV is the vertical field of view in degrees.
	FOV       float64
	Near, Far float64
}

// Options configure a Renderer. The zero value is usable.
type Options struct {
	// Width, Height of the output image in pixels. Defaults 512x288.
	Width, Height int
	// SuperSample renders at a multiple of the output resolution and
	// downsamples for anti-aliasing. Values below 1 mean no
	// supersampling.
	SuperSample int
	// Workers is the number of render goroutines, default NumCPU.
	Workers int
	// Background fills discarded fragments of the forward pass.
	Background fauxgl.Color
	// Lighter evaluates final shading; nil selects a default
	// directional light.
	Lighter Lighter
}

// Renderer renders frames of one scene. The scene may be mutated (and its
// tree rebuilt) by the host between frames, never during a pass.
type Renderer struct {
	scene  *petri.Scene
	view   camera.View
	opts   Options
	logger log.Logger

	// truncated counts rays whose candidate set overflowed during the
	// last pass.
	truncated int64
}

// New returns a renderer of scene viewed through vc.
func New(scene *petri.Scene, vc ViewConfig, opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 512
	}
	if opts.Height <= 0 {
		opts.Height = 288
	}
	if opts.SuperSample < 1 {
		opts.SuperSample = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Lighter == nil {
		opts.Lighter = Directional{
			Direction: r3.Vec{X: -0.4, Y: 0.6, Z: -1},
			Ambient:   0.35,
			Intensity: 1.1,
		}
	}
	if vc.FOV == 0 {
		vc.FOV = 40
	}
	if vc.Far == 0 {
		vc.Near, vc.Far = 0.1, 100
	}
	w := opts.Width * opts.SuperSample
	h := opts.Height * opts.SuperSample
	return &Renderer{
		scene:  scene,
		view:   camera.LookAt(vc.Eye, vc.LookAt, vc.Up, vc.FOV, vc.Near, vc.Far, w, h),
		opts:   opts,
		logger: log.New("render"),
	}
}

// View exposes the internal (supersampled) camera view.
func (r *Renderer) View() camera.View { return r.view }

// DepthNormalPass marches every fragment to the far cutoff and fills a
// G-buffer with encoded normals and normalized device depth. Fragments that
// miss everything stay cleared (the discard signal).
func (r *Renderer) DepthNormalPass() *GBuffer {
	w, h := r.view.Size()
	g := NewGBuffer(w, h)
	start := time.Now()
	r.parallelRows(h, func(m *petri.Marcher, y int) {
		eye := r.view.Eye()
		for x := 0; x < w; x++ {
			sx, sy := float64(x)+0.5, float64(y)+0.5
			dir := r.view.SetupRay(sx, sy)
			t := m.March(eye, dir, FarCutoff)
			if m.Truncated() {
				atomic.AddInt64(&r.truncated, 1)
			}
			if t >= FarCutoff {
				continue
			}
			p := r3.Add(eye, r3.Scale(t, dir))
			g.SetHit(x, y, r.view.PointToDepth(p), petri.Normal(m, p))
		}
	})
	r.logPass("depth/normal", start)
	return g
}

// ForwardPass shades every fragment against the scene, bounded and
// reconciled by the prepass depth. prepass may be nil, in which case every
// march runs to the far cutoff. Returns the lit image and the depth of the
// shaded fragments, both at the internal resolution.
func (r *Renderer) ForwardPass(prepass DepthSampler) (*image.NRGBA, *GBuffer) {
	w, h := r.view.Size()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	out := NewGBuffer(w, h)
	bg := r.opts.Background.NRGBA()
	start := time.Now()
	r.parallelRows(h, func(m *petri.Marcher, y int) {
		eye := r.view.Eye()
		for x := 0; x < w; x++ {
			sx, sy := float64(x)+0.5, float64(y)+0.5
			dir := r.view.SetupRay(sx, sy)

			bound := FarCutoff
			prepassDepth := math.NaN()
			if prepass != nil {
				if d, ok := prepass.DepthSample(x, y); ok {
					prepassDepth = d
					bound = r.view.DepthToDistance(d, sx, sy)
				}
			}

			t := m.March(eye, dir, bound)
			if m.Truncated() {
				atomic.AddInt64(&r.truncated, 1)
			}
			if t >= bound {
				img.SetNRGBA(x, y, bg)
				continue
			}
			p := r3.Add(eye, r3.Scale(t, dir))
			depth := r.view.PointToDepth(p)
			if !math.IsNaN(prepassDepth) && math.Abs(depth-prepassDepth) <= depthCoincidenceEps {
				// Same surface the prepass already resolved.
				img.SetNRGBA(x, y, bg)
				continue
			}

			n := petri.Normal(m, p)
			s := Surface{
				Point:     p,
				Normal:    n,
				Occlusion: petri.AmbientOcclusion(m, p, n),
				Thickness: petri.Thickness(m, p, n),
				Material:  blobMaterial(),
			}
			s.Material.EmissiveIntensity = emissiveIntensity(s.Thickness, r.scene.Now)
			img.SetNRGBA(x, y, r.opts.Lighter.Shade(s, dir).NRGBA())
			out.SetHit(x, y, depth, n)
		}
	})
	r.logPass("forward", start)
	return img, out
}

// RenderFrame runs the forward pass and downsamples to the output
// resolution.
func (r *Renderer) RenderFrame(prepass DepthSampler) image.Image {
	img, _ := r.ForwardPass(prepass)
	if r.opts.SuperSample == 1 {
		return img
	}
	return resize.Resize(uint(r.opts.Width), uint(r.opts.Height), img, resize.Bilinear)
}

// blobMaterial is the fixed blob material; emissive intensity is filled in
// per fragment.
func blobMaterial() Material {
	return Material{
		Base:        fauxgl.HexColor("#468966"),
		Emissive:    fauxgl.HexColor("#8FE3B4"),
		Reflectance: 0.35,
		Roughness:   0.55,
		Metallic:    0,
	}
}

// emissiveIntensity drives the translucent glow: strongest where the
// surface is thin, pulsing slowly with global time.
func emissiveIntensity(thickness, now float64) float64 {
	pulse := 0.75 + 0.25*math.Sin(2*now)
	return (1 - thickness) * pulse
}

// parallelRows fans rows out to the worker pool. Every worker owns a
// private Marcher so no per-ray state is shared between fragments.
func (r *Renderer) parallelRows(h int, fn func(m *petri.Marcher, y int)) {
	atomic.StoreInt64(&r.truncated, 0)
	rows := make(chan int, r.opts.Workers)
	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := r.scene.NewMarcher()
			for y := range rows {
				fn(m, y)
			}
		}()
	}
	for y := 0; y < h; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()
}

func (r *Renderer) logPass(name string, start time.Time) {
	if n := atomic.LoadInt64(&r.truncated); n > 0 {
		r.logger.Warningf("%s pass: %d rays exceeded the hit set capacity", name, n)
	}
	r.logger.Debugf("%s pass done in %s", name, time.Since(start))
}
