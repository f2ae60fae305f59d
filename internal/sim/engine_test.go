package sim

import (
	"context"
	"errors"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/metrics"
)

const frameDt = 1.0 / 60.0

func testConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.WorkerCount = 4
	return cfg
}

func minSeparation(ps []dynamo.Vec) float64 {
	best := math.Inf(1)
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			best = math.Min(best, r2.Norm(r2.Sub(ps[i], ps[j])))
		}
	}
	return best
}

func expectInside(cfg dynamo.Config, ps []dynamo.Vec) {
	for _, p := range ps {
		Expect(p.X).To(BeNumerically(">=", cfg.Radius))
		Expect(p.X).To(BeNumerically("<=", cfg.DomainWidth-cfg.Radius))
		Expect(p.Y).To(BeNumerically(">=", cfg.Radius))
		Expect(p.Y).To(BeNumerically("<=", cfg.DomainHeight-cfg.Radius))
	}
}

type frameCounter struct {
	mu     sync.Mutex
	frames []int
}

func (c *frameCounter) OnFrame(f dynamo.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f.Index)
}

// corruptAt writes NaN into the first particle once frame reaches at.
type corruptAt struct{ at int }

func (c corruptAt) OnFrame(f dynamo.Frame) {
	if f.Index == c.at && len(f.Current) > 0 {
		f.Current[0].X = math.NaN()
	}
}

var _ = Describe("Engine", func() {
	var cfg dynamo.Config

	BeforeEach(func() {
		cfg = testConfig()
	})

	Describe("construction", func() {
		DescribeTable("rejects invalid configs",
			func(mutate func(*dynamo.Config), want error) {
				mutate(&cfg)
				eng, err := New(cfg)
				Expect(eng).To(BeNil())
				Expect(errors.Is(err, want)).To(BeTrue(), "got %v", err)
			},
			Entry("zero cell size", func(c *dynamo.Config) { c.CellSize = 0 }, dynamo.ErrInvalidCellSize),
			Entry("cell below diameter", func(c *dynamo.Config) { c.CellSize = 3 }, dynamo.ErrCellTooSmall),
			Entry("no workers", func(c *dynamo.Config) { c.WorkerCount = 0 }, dynamo.ErrZeroWorkers),
			Entry("no sub-steps", func(c *dynamo.Config) { c.SubSteps = 0 }, dynamo.ErrZeroSubSteps),
			Entry("negative radius", func(c *dynamo.Config) { c.Radius = -1 }, dynamo.ErrInvalidRadius),
			Entry("tiny domain", func(c *dynamo.Config) { c.DomainWidth = 1 }, dynamo.ErrInvalidDomain),
			Entry("unknown boundary", func(c *dynamo.Config) { c.Boundary = "sticky" }, dynamo.ErrUnknownBoundary),
		)

		It("starts empty", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.ParticleCount()).To(Equal(0))
			Expect(eng.Positions()).To(BeEmpty())
			Expect(eng.Frame()).To(Equal(0))
		})
	})

	Describe("Spawn", func() {
		It("stacks particles along +Y and returns the first id", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.Spawn(dynamo.Vec{X: 100, Y: 50}, 3)).To(Equal(0))
			Expect(eng.Spawn(dynamo.Vec{X: 200, Y: 50}, 2)).To(Equal(3))
			Expect(eng.Spawn(dynamo.Vec{X: 300, Y: 50}, 0)).To(Equal(5))

			ps := eng.Positions()
			Expect(ps).To(HaveLen(5))
			Expect(ps[2]).To(Equal(dynamo.Vec{X: 100, Y: 50 + 2*cfg.SpawnSpacing}))
			Expect(ps[4]).To(Equal(dynamo.Vec{X: 200, Y: 50 + cfg.SpawnSpacing}))
		})

		It("hands out copies of the positions", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 100, Y: 100}, 1)

			ps := eng.Positions()
			ps[0] = dynamo.Vec{X: -1, Y: -1}
			Expect(eng.Positions()[0]).To(Equal(dynamo.Vec{X: 100, Y: 100}))
		})
	})

	Describe("Step", func() {
		It("separates two overlapping particles stacked under gravity", func() {
			cfg.SpawnVelocity = dynamo.Vec{}
			cfg.SpawnSpacing = 3
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 400, Y: 300}, 2)

			eng.Step(frameDt)

			ps := eng.Positions()
			Expect(ps).To(HaveLen(2))
			Expect(minSeparation(ps)).To(BeNumerically(">=", 2*cfg.Radius-1e-9))
			expectInside(cfg, ps)
			Expect(eng.LastStats().Corrections).To(BeNumerically(">", 0))
		})

		It("pushes three collinear particles apart without gravity", func() {
			cfg.Gravity = dynamo.Vec{}
			cfg.SpawnVelocity = dynamo.Vec{}
			cfg.SpawnSpacing = 1
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 400, Y: 300}, 3)

			for i := 0; i < 10; i++ {
				eng.Step(frameDt)
			}

			ps := eng.Positions()
			Expect(minSeparation(ps)).To(BeNumerically(">=", 2*cfg.Radius-1e-9))
			expectInside(cfg, ps)
		})

		It("separates coincident particles", func() {
			cfg.Gravity = dynamo.Vec{}
			cfg.SpawnVelocity = dynamo.Vec{}
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 400, Y: 300}, 1)
			eng.Spawn(dynamo.Vec{X: 400, Y: 300}, 1)

			eng.Step(frameDt)

			ps := eng.Positions()
			Expect(ps[0].X).To(BeNumerically(">", ps[1].X))
			Expect(ps[0].Y).To(Equal(ps[1].Y))
			Expect(minSeparation(ps)).To(BeNumerically(">=", 2*cfg.Radius-1e-9))
		})

		It("keeps a tight cluster finite and intact", func() {
			cfg.SpawnSpacing = 1.5
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 10; i++ {
				eng.Spawn(dynamo.Vec{X: 390 + 1.5*float64(i), Y: 290}, 10)
			}
			Expect(eng.ParticleCount()).To(Equal(100))

			for i := 0; i < 120; i++ {
				eng.Step(frameDt)
			}

			ps := eng.Positions()
			Expect(ps).To(HaveLen(100))
			for _, p := range ps {
				Expect(dynamo.Finite(p)).To(BeTrue())
			}
		})

		It("leaves particles in place for a stalled clock", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 100, Y: 100}, 1)

			eng.Step(0)
			eng.Step(math.NaN())

			Expect(eng.Positions()[0]).To(Equal(dynamo.Vec{X: 100, Y: 100}))
			Expect(eng.Frame()).To(Equal(2))
		})

		It("bounces off the floor in the elastic variant", func() {
			cfg.Boundary = dynamo.BoundaryElastic
			cfg.Gravity = dynamo.Vec{}
			cfg.SpawnVelocity = dynamo.Vec{Y: 1}
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 400, Y: cfg.DomainHeight - cfg.Radius - 0.5}, 1)

			eng.Step(frameDt)

			p := eng.Positions()[0]
			Expect(p.Y).To(BeNumerically("<", cfg.DomainHeight-cfg.Radius))
		})

		It("notifies observers once per frame", func() {
			counter := &frameCounter{}
			eng, err := New(cfg, WithObserver(counter))
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 100, Y: 100}, 5)

			for i := 0; i < 3; i++ {
				eng.Step(frameDt)
			}
			Expect(counter.frames).To(Equal([]int{1, 2, 3}))
		})

		It("is reproducible for a fixed worker count", func() {
			run := func() []dynamo.Vec {
				eng, err := New(cfg)
				Expect(err).NotTo(HaveOccurred())
				for i := 0; i < 5; i++ {
					eng.Spawn(dynamo.Vec{X: 380 + 3*float64(i), Y: 100}, 20)
				}
				for i := 0; i < 30; i++ {
					eng.Step(frameDt)
				}
				return eng.Positions()
			}
			Expect(run()).To(Equal(run()))
		})
	})

	Describe("Run", func() {
		It("records one sample per frame and collects metrics", func() {
			eng, err := New(cfg, WithMetric(metrics.NewKineticEnergy()), WithMetric(metrics.NewStability()))
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 200, Y: 100}, 50)

			res, err := eng.Run(context.Background(), RunConfig{Frames: 30, FrameDt: frameDt, ValidateState: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FramesRun).To(Equal(30))
			Expect(res.Samples).To(HaveLen(30))
			Expect(res.Samples[29].Frame).To(Equal(30))
			Expect(res.Samples[29].Particles).To(Equal(50))
			Expect(res.Samples[29].Time).To(BeNumerically("~", 0.5, 1e-9))
			Expect(res.Metrics).To(HaveKey("kinetic_energy"))
			Expect(res.Metrics["stability"]).To(BeNumerically("==", 1))
		})

		It("repairs a non-finite spawn instead of failing validation", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: math.NaN(), Y: 100}, 1)

			_, err = eng.Run(context.Background(), RunConfig{Frames: 2, FrameDt: frameDt, ValidateState: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(dynamo.Finite(eng.Positions()[0])).To(BeTrue())
		})

		It("returns the partial result and a frame error for a non-finite state", func() {
			eng, err := New(cfg, WithObserver(corruptAt{at: 2}))
			Expect(err).NotTo(HaveOccurred())
			eng.Spawn(dynamo.Vec{X: 200, Y: 100}, 3)

			res, err := eng.Run(context.Background(), RunConfig{Frames: 10, FrameDt: frameDt, ValidateState: true})
			Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
			var simErr *dynamo.SimError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Frame).To(Equal(2))
			Expect(res).NotTo(BeNil())
			Expect(res.FramesRun).To(Equal(2))
			Expect(res.Samples).To(HaveLen(2))
		})

		It("stops between frames when the context is canceled", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := eng.Run(ctx, RunConfig{Frames: 10, FrameDt: frameDt})
			Expect(errors.Is(err, dynamo.ErrContextCanceled)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.FramesRun).To(Equal(0))
		})

		It("rejects empty runs", func() {
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.Run(context.Background(), RunConfig{Frames: 0, FrameDt: frameDt})
			Expect(err).To(HaveOccurred())
			_, err = eng.Run(context.Background(), RunConfig{Frames: 1})
			Expect(err).To(HaveOccurred())
		})
	})

	It("lets readers run while another goroutine steps", func() {
		eng, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		eng.Spawn(dynamo.Vec{X: 200, Y: 100}, 40)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer GinkgoRecover()
			for i := 0; i < 50; i++ {
				eng.Step(frameDt)
			}
		}()
		go func() {
			defer wg.Done()
			defer GinkgoRecover()
			for i := 0; i < 50; i++ {
				Expect(eng.Positions()).To(HaveLen(40))
			}
		}()
		wg.Wait()
	})
})
