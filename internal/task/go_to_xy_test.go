package task

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/metrics"
)

var _ = Describe("GoToXY", func() {
	var cfg = xyConfig()

	BeforeEach(func() {
		cfg = xyConfig()
	})

	It("flags envs at the target and beyond kill_dist in one step", func() {
		t := newXY(cfg, 4)
		s := planarState(
			[3]float64{0, 0, 0},
			[3]float64{0, 0, 1},
			[3]float64{10, 0, 0},
			[3]float64{0, -10, 0},
		)

		_, kill := step(t, s)

		Expect(t.GoalReached()).To(Equal([]int{1, 1, 0, 0}))
		Expect(kill).To(Equal([]bool{false, false, true, true}))
	})

	It("counts consecutive in-tolerance steps only", func() {
		t := newXY(cfg, 1)
		in := planarState([3]float64{0.05, 0, 0})
		out := planarState([3]float64{1, 0, 0})

		var counts []int
		for _, s := range []State{in, in, out, in} {
			step(t, s)
			counts = append(counts, t.GoalReached()[0])
		}
		Expect(counts).To(Equal([]int{1, 2, 0, 1}))
	})

	It("kills once the in-tolerance run reaches the limit", func() {
		cfg.KillAfterNStepsInTolerance = 3
		t := newXY(cfg, 1)
		at := planarState([3]float64{0, 0, 0})

		_, kill := step(t, at)
		Expect(kill[0]).To(BeFalse())
		_, kill = step(t, at)
		Expect(kill[0]).To(BeFalse())
		_, kill = step(t, at)
		Expect(kill[0]).To(BeTrue())
	})

	It("writes position error and label into the observation", func() {
		t := newXY(cfg, 2)
		s := planarState([3]float64{1, 2, math.Pi / 2}, [3]float64{-3, 0.5, 0})
		s.LinearVelocity.Set(1, 0, 0.7)
		s.AngularVelocity[1] = -0.2

		obs, err := t.StateObservations(s)
		Expect(err).NotTo(HaveOccurred())
		r, c := obs.Dims()
		Expect(r).To(Equal(2))
		Expect(c).To(Equal(ObservationDim))

		Expect(obs.At(0, 0)).To(BeNumerically("~", 0, 1e-12))
		Expect(obs.At(0, 1)).To(BeNumerically("~", 1, 1e-12))
		Expect(mat.Row(nil, 0, obs)[5:]).To(Equal([]float64{LabelGoToXY, -1, -2, 0, 0}))
		Expect(mat.Row(nil, 1, obs)[2:]).To(Equal([]float64{0.7, 0, -0.2, LabelGoToXY, 3, -0.5, 0, 0}))
	})

	It("refuses to reward before observing", func() {
		t := newXY(cfg, 2)
		s := planarState([3]float64{0, 0, 0}, [3]float64{1, 1, 0})

		_, err := t.ComputeReward(s, nil)
		Expect(errors.Is(err, core.ErrNotReady)).To(BeTrue())

		_, err = t.StateObservations(s)
		Expect(err).NotTo(HaveOccurred())
		_, err = t.ComputeReward(s, mat.NewDense(3, 2, nil))
		Expect(errors.Is(err, core.ErrShapeMismatch)).To(BeTrue())

		_, err = t.ComputeReward(s, mat.NewDense(2, 2, nil))
		Expect(err).NotTo(HaveOccurred())
		_, err = t.ComputeReward(s, nil)
		Expect(errors.Is(err, core.ErrNotReady)).To(BeTrue())
	})

	It("rejects a malformed state", func() {
		t := newXY(cfg, 2)
		s := planarState([3]float64{0, 0, 0})

		_, err := t.StateObservations(s)
		Expect(errors.Is(err, core.ErrShapeMismatch)).To(BeTrue())
	})

	Describe("reward", func() {
		It("shapes the distance and adds the goal bonus", func() {
			cfg.GoalReward = 10
			t := newXY(cfg, 2)
			rew, _ := step(t, planarState([3]float64{0, 0, 0}, [3]float64{0.5, 0, 0}))

			Expect(rew[0]).To(BeNumerically("~", 1+10, 1e-12))
			Expect(rew[1]).To(BeNumerically("~", math.Exp(-0.5/0.25), 1e-12))
		})

		It("records the boundary penalty and applies it only when enabled", func() {
			cfg.BoundaryCost = 2
			t := newXY(cfg, 1)
			s := planarState([3]float64{4.5, 0, 0})
			rew, _ := step(t, s)

			penalty := -math.Exp(-(4.5-5)/0.25) * 2
			Expect(t.boundaryDist[0]).To(BeNumerically("~", -0.5, 1e-12))
			Expect(t.boundaryPenalty[0]).To(BeNumerically("~", penalty, 1e-12))
			Expect(rew[0]).To(BeNumerically("~", math.Exp(-4.5/0.25), 1e-12))

			cfg.ApplyBoundaryPenalty = true
			t = newXY(cfg, 1)
			rew, _ = step(t, s)
			Expect(rew[0]).To(BeNumerically("~", math.Exp(-4.5/0.25)+penalty, 1e-9))
		})

		It("applies the boundary penalty in every shipped GoToXY preset", func() {
			for _, platform := range config.ListPlatforms() {
				for _, name := range config.ListPresets(platform) {
					preset := config.GetPreset(platform, name)
					if preset.Task.Name != config.TaskGoToXY {
						continue
					}
					Expect(preset.Task.ApplyBoundaryPenalty).To(BeTrue(), "%s/%s", platform, name)

					t := newXYWithReward(preset.Task, preset.Reward, 1)
					d := preset.Task.KillDist - 0.1
					rew, _ := step(t, planarState([3]float64{d, 0, 0}))

					penalty := -math.Exp(0.1/0.25) * preset.Task.BoundaryCost
					Expect(t.boundaryPenalty[0]).To(BeNumerically("~", penalty, 1e-9))
					Expect(rew[0]).To(BeNumerically("~", t.position.Reward(d)+penalty, 1e-9), "%s/%s", platform, name)
				}
			}
		})
	})

	It("accumulates its statistics", func() {
		t := newXY(cfg, 2)
		stats := metrics.NewStats(2)
		t.CreateStats(stats)
		Expect(stats.Names()).To(ConsistOf("position_reward", "position_error", "boundary_penalty", "boundary_dist"))

		s := planarState([3]float64{0, 0, 0}, [3]float64{3, 4, 0})
		step(t, s)
		Expect(t.UpdateStatistics(stats)).To(Succeed())
		step(t, s)
		Expect(t.UpdateStatistics(stats)).To(Succeed())

		Expect(stats.Get("position_error")).To(Equal([]float64{0, 10}))
		Expect(stats.Get("boundary_dist")[1]).To(BeNumerically("~", 0, 1e-12))
	})

	Describe("Reset", func() {
		It("zeroes only the named counters", func() {
			t := newXY(cfg, 3)
			step(t, planarState([3]float64{0, 0, 0}, [3]float64{0, 0, 0}, [3]float64{0, 0, 0}))

			Expect(t.Reset(core.EnvIDs{1})).To(Succeed())
			Expect(t.GoalReached()).To(Equal([]int{1, 0, 1}))

			Expect(errors.Is(t.Reset(core.EnvIDs{3}), core.ErrShapeMismatch)).To(BeTrue())
		})
	})

	Describe("Goals", func() {
		It("draws targets in the goal box for the named envs only", func() {
			cfg.GoalRandomPosition = 2
			t := newXY(cfg, 6)
			positions, orientations := referencePoses(6)
			before := mat.DenseCopyOf(positions)
			beforeOrient := mat.DenseCopyOf(orientations)

			Expect(t.Goals(core.EnvIDs{0, 3, 4}, positions, orientations)).To(Succeed())

			targets := t.Targets()
			for e := 0; e < 6; e++ {
				switch e {
				case 0, 3, 4:
					Expect(math.Abs(targets.At(e, 0))).To(BeNumerically("<=", 2))
					Expect(math.Abs(targets.At(e, 1))).To(BeNumerically("<=", 2))
					Expect(positions.At(e, 0)).To(Equal(before.At(e, 0) + targets.At(e, 0)))
					Expect(positions.At(e, 1)).To(Equal(before.At(e, 1) + targets.At(e, 1)))
					Expect(positions.At(e, 2)).To(Equal(0.5))
				default:
					Expect(mat.Row(nil, e, targets)).To(Equal([]float64{0, 0}))
					Expect(mat.Row(nil, e, positions)).To(Equal(before.RawRowView(e)))
				}
			}
			Expect(mat.Equal(orientations, beforeOrient)).To(BeTrue())
		})

		It("rejects mis-shaped buffers", func() {
			t := newXY(cfg, 2)
			err := t.Goals(core.EnvIDs{0}, mat.NewDense(2, 2, nil), mat.NewDense(2, 4, nil))
			Expect(errors.Is(err, core.ErrShapeMismatch)).To(BeTrue())
		})
	})

	Describe("Spawns", func() {
		It("places envs in the annulus around their target", func() {
			cfg.GoalRandomPosition = 1
			cfg.MinSpawnDist, cfg.MaxSpawnDist = 1, 3
			t := newXY(cfg, 32)
			goals, goalOrient := referencePoses(32)
			Expect(t.Goals(core.AllEnvs(32), goals, goalOrient)).To(Succeed())

			positions, orientations := referencePoses(32)
			initial := mat.DenseCopyOf(positions)
			Expect(t.Spawns(core.AllEnvs(32), positions, orientations, 0)).To(Succeed())

			for e := 0; e < 32; e++ {
				dx := positions.At(e, 0) - initial.At(e, 0) - t.Targets().At(e, 0)
				dy := positions.At(e, 1) - initial.At(e, 1) - t.Targets().At(e, 1)
				Expect(math.Hypot(dx, dy)).To(BeNumerically(">=", 1-1e-9))
				Expect(math.Hypot(dx, dy)).To(BeNumerically("<=", 3+1e-9))

				var q [4]float64
				copy(q[:], orientations.RawRowView(e))
				Expect(q[1]).To(Equal(0.0))
				Expect(q[2]).To(Equal(0.0))
				heading := core.Yaw(q)
				Expect(heading).To(BeNumerically(">=", 0))
				Expect(heading).To(BeNumerically("<", math.Pi))
			}
		})

		It("leaves other envs untouched and clears the named counters", func() {
			t := newXY(cfg, 4)
			step(t, planarState([3]float64{}, [3]float64{}, [3]float64{}, [3]float64{}))

			positions, orientations := referencePoses(4)
			before := mat.DenseCopyOf(positions)
			beforeOrient := mat.DenseCopyOf(orientations)

			Expect(t.Spawns(core.EnvIDs{2}, positions, orientations, 0)).To(Succeed())

			Expect(t.GoalReached()).To(Equal([]int{1, 1, 0, 1}))
			for _, e := range []int{0, 1, 3} {
				Expect(mat.Row(nil, e, positions)).To(Equal(before.RawRowView(e)))
				Expect(mat.Row(nil, e, orientations)).To(Equal(beforeOrient.RawRowView(e)))
			}
			Expect(mat.Row(nil, 2, positions)).NotTo(Equal(before.RawRowView(2)))
		})

		It("follows the curriculum during warmup", func() {
			cfg.SpawnCurriculum.Enabled = true
			cfg.SpawnCurriculum.Warmup = 100
			cfg.SpawnCurriculum.End = 200
			cfg.SpawnCurriculum.MinDist = 0.5
			cfg.SpawnCurriculum.MaxDist = 0.75
			cfg.MinSpawnDist, cfg.MaxSpawnDist = 4, 5
			t := newXY(cfg, 16)

			positions, orientations := referencePoses(16)
			initial := mat.DenseCopyOf(positions)
			Expect(t.Spawns(core.AllEnvs(16), positions, orientations, 10)).To(Succeed())
			for e := 0; e < 16; e++ {
				d := math.Hypot(positions.At(e, 0)-initial.At(e, 0), positions.At(e, 1)-initial.At(e, 1))
				Expect(d).To(BeNumerically("<=", 0.75+1e-9))
			}

			positions, orientations = referencePoses(16)
			Expect(t.Spawns(core.AllEnvs(16), positions, orientations, 1000)).To(Succeed())
			for e := 0; e < 16; e++ {
				d := math.Hypot(positions.At(e, 0)-initial.At(e, 0), positions.At(e, 1)-initial.At(e, 1))
				Expect(d).To(BeNumerically(">=", 4-1e-9))
			}
		})
	})
})
