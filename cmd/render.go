package cmd

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/fauxgl"
	"github.com/soypat/petri"
	"github.com/soypat/petri/render"
	"github.com/urfave/cli"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// organism is the host-side state of a single blob. The renderer only sees
// the per-frame BlobEntity snapshot derived from it.
type organism struct {
	pos     r2.Vec
	size    float64
	heading float64
	wobble  float64
	lastAte float64
	color   r3.Vec
}

// dishSim advances a population of wandering organisms inside the play area
// and resolves merges between overlapping pairs.
type dishSim struct {
	rnd  *rand.Rand
	pop  []organism
	eats int
}

func newDishSim(seed int64, count int) *dishSim {
	rnd := rand.New(rand.NewSource(seed))
	sim := &dishSim{rnd: rnd}
	for i := 0; i < count; i++ {
		angle := rnd.Float64() * 2 * math.Pi
		dist := math.Sqrt(rnd.Float64()) * (petri.PlayRadius - 1.5)
		sim.pop = append(sim.pop, organism{
			pos:     r2.Vec{X: dist * math.Cos(angle), Y: dist * math.Sin(angle)},
			size:    0.35 + 0.45*rnd.Float64(),
			heading: rnd.Float64() * 2 * math.Pi,
			wobble:  0.5 + rnd.Float64(),
			lastAte: -100,
			color:   r3.Vec{X: 0.2 + 0.3*rnd.Float64(), Y: 0.6 + 0.3*rnd.Float64(), Z: 0.4 + 0.3*rnd.Float64()},
		})
	}
	return sim
}

// step advances the population by dt seconds.
func (s *dishSim) step(now, dt float64) {
	for i := range s.pop {
		o := &s.pop[i]
		o.heading += (s.rnd.Float64() - 0.5) * o.wobble * dt * 4
		speed := 0.9 / math.Sqrt(o.size)
		o.pos.X += math.Cos(o.heading) * speed * dt
		o.pos.Y += math.Sin(o.heading) * speed * dt

		// Keep organisms inside the dish. On contact with the wall the
		// heading is turned back towards the center.
		limit := petri.PlayRadius - o.size
		if r := math.Hypot(o.pos.X, o.pos.Y); r > limit {
			o.pos.X *= limit / r
			o.pos.Y *= limit / r
			o.heading = math.Atan2(-o.pos.Y, -o.pos.X) + (s.rnd.Float64()-0.5)
		}
	}
	s.merge(now)
}

// merge resolves overlapping pairs. The larger organism absorbs the smaller
// one and gains a fraction of its size.
func (s *dishSim) merge(now float64) {
	for i := 0; i < len(s.pop); i++ {
		for j := i + 1; j < len(s.pop); j++ {
			a, b := s.pop[i], s.pop[j]
			d := math.Hypot(a.pos.X-b.pos.X, a.pos.Y-b.pos.Y)
			if d >= 0.75*(a.size+b.size) {
				continue
			}
			big, small := i, j
			if a.size < b.size {
				big, small = j, i
			}
			s.pop[big].size += 0.15 * s.pop[small].size
			s.pop[big].lastAte = now
			s.eats++
			s.pop = append(s.pop[:small], s.pop[small+1:]...)
			if small == i {
				i--
				break
			}
			j--
		}
	}
}

// snapshot fills dst with the current population state.
func (s *dishSim) snapshot(dst *petri.BlobData) error {
	dst.Clear()
	for _, o := range s.pop {
		_, err := dst.Push(petri.BlobEntity{
			Position:  o.pos,
			Size:      o.size,
			Direction: o.heading,
			LastAte:   o.lastAte,
			Color:     o.color,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RenderAnimation renders a sequence of frames of a simulated dish and
// writes them as numbered PNG files.
func RenderAnimation(ctx *cli.Context) error {
	setupLogging(ctx)

	frames := ctx.Int("frames")
	fps := float64(ctx.Int("fps"))
	outDir := ctx.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %v", err)
	}

	sim := newDishSim(int64(ctx.Int("seed")), ctx.Int("blobs"))
	scene := &petri.Scene{}

	opts := render.Options{
		Width:       ctx.Int("width"),
		Height:      ctx.Int("height"),
		SuperSample: ctx.Int("supersample"),
		Workers:     ctx.Int("workers"),
		Background:  fauxgl.HexColor("#1A2930"),
	}
	// Inside the vessel cavity, looking across the floor at the colony.
	view := render.ViewConfig{
		Eye:    r3.Vec{X: 0, Y: -7, Z: 2.2},
		LookAt: r3.Vec{X: 0, Y: 0, Z: 1},
		Up:     r3.Vec{X: 0, Y: 0, Z: 1},
		FOV:    float64(ctx.Int("fov")),
	}

	start := time.Now()
	dt := 1 / fps
	for frame := 0; frame < frames; frame++ {
		now := float64(frame) * dt
		sim.step(now, dt)
		if err := sim.snapshot(&scene.Blobs); err != nil {
			return err
		}
		scene.Now = now
		if err := scene.BuildTree(); err != nil {
			return err
		}

		r := render.New(scene, view, opts)
		img := r.RenderFrame(nil)

		name := filepath.Join(outDir, fmt.Sprintf("frame_%04d.png", frame))
		if err := fauxgl.SavePNG(name, img); err != nil {
			return fmt.Errorf("save %s: %v", name, err)
		}
		if ctx.Bool("normals") {
			name := filepath.Join(outDir, fmt.Sprintf("frame_%04d_normal.png", frame))
			if err := fauxgl.SavePNG(name, normalImage(r.DepthNormalPass())); err != nil {
				return fmt.Errorf("save %s: %v", name, err)
			}
		}
		logger.Infof("frame %d/%d: %d organisms, %d merges", frame+1, frames, len(sim.pop), sim.eats)
	}
	logger.Noticef("rendered %d frames in %s", frames, time.Since(start).Truncate(time.Millisecond))
	return nil
}

// normalImage visualizes a prepass G-buffer as a normal map. Misses stay
// black.
func normalImage(g *render.GBuffer) image.Image {
	w, h := g.Size()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if _, ok := g.DepthSample(x, y); !ok {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			n := g.NormalAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * (0.5*n.X + 0.5)),
				G: uint8(255 * (0.5*n.Y + 0.5)),
				B: uint8(255 * (0.5*n.Z + 0.5)),
				A: 255,
			})
		}
	}
	return img
}
