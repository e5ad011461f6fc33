package task

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/metrics"
)

var _ = Describe("GoToPose", func() {
	var cfg = poseConfig()

	BeforeEach(func() {
		cfg = poseConfig()
	})

	It("requires both tolerances to count the goal", func() {
		t := newPose(cfg, 3)
		s := planarState(
			[3]float64{0, 0, 0},
			[3]float64{0, 0, 0.5},
			[3]float64{1, 0, 0},
		)

		_, kill := step(t, s)

		Expect(t.GoalReached()).To(Equal([]int{1, 0, 0}))
		Expect(kill).To(Equal([]bool{false, false, false}))
	})

	It("encodes the heading error as cos and sin", func() {
		t := newPose(cfg, 1)
		t.targetHeadings[0] = 0.25
		s := planarState([3]float64{0, 0, 2*math.Pi - 0.25})

		obs, err := t.StateObservations(s)
		Expect(err).NotTo(HaveOccurred())

		Expect(t.HeadingError()[0]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(obs.At(0, ObsLabel)).To(Equal(LabelGoToPose))
		Expect(obs.At(0, ObsTaskData+2)).To(BeNumerically("~", math.Cos(0.5), 1e-12))
		Expect(obs.At(0, ObsTaskData+3)).To(BeNumerically("~", math.Sin(0.5), 1e-12))
	})

	It("keeps heading errors in (-π, π]", func() {
		n := 64
		t := newPose(cfg, n*n)
		poses := make([][3]float64, 0, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				t.targetHeadings[i*n+j] = 2 * math.Pi * float64(i) / float64(n)
				poses = append(poses, [3]float64{0, 0, 2 * math.Pi * float64(j) / float64(n)})
			}
		}
		_, err := t.StateObservations(planarState(poses...))
		Expect(err).NotTo(HaveOccurred())

		for k, he := range t.HeadingError() {
			Expect(he).To(BeNumerically(">", -math.Pi))
			Expect(he).To(BeNumerically("<=", math.Pi))
			if k/n == k%n {
				Expect(math.Abs(he)).To(BeNumerically("<", 1e-12))
			}
		}
	})

	It("sums position, heading and goal rewards", func() {
		cfg.GoalReward = 2
		t := newPose(cfg, 2)
		t.targetHeadings[1] = 1
		rew, _ := step(t, planarState([3]float64{0, 0, 0}, [3]float64{0.5, 0, 0}))

		Expect(rew[0]).To(BeNumerically("~", 1+1+2, 1e-12))
		Expect(rew[1]).To(BeNumerically("~", math.Exp(-0.5/0.25)+math.Exp(-1/0.25), 1e-12))

		stats := metrics.NewStats(2)
		t.CreateStats(stats)
		Expect(t.UpdateStatistics(stats)).To(Succeed())
		Expect(stats.Names()).To(ConsistOf("position_reward", "position_error", "heading_reward", "heading_error"))
		Expect(stats.Get("heading_error")[1]).To(BeNumerically("~", 1, 1e-12))
		Expect(stats.Get("position_reward")[0]).To(BeNumerically("~", 1, 1e-12))
	})

	It("draws goal headings in [0, 2π) and writes them as yaw quaternions", func() {
		t := newPose(cfg, 64)
		positions, orientations := referencePoses(64)
		ids := core.EnvIDs{}
		for e := 0; e < 64; e += 2 {
			ids = append(ids, e)
		}
		before := mat.DenseCopyOf(orientations)

		Expect(t.Goals(ids, positions, orientations)).To(Succeed())

		for e := 0; e < 64; e++ {
			if e%2 == 1 {
				Expect(mat.Row(nil, e, orientations)).To(Equal(before.RawRowView(e)))
				Expect(t.TargetHeadings()[e]).To(Equal(0.0))
				continue
			}
			h := t.TargetHeadings()[e]
			Expect(h).To(BeNumerically(">=", 0))
			Expect(h).To(BeNumerically("<", 2*math.Pi))

			var q [4]float64
			copy(q[:], orientations.RawRowView(e))
			Expect(q[0]).To(BeNumerically("~", math.Cos(h/2), 1e-12))
			Expect(q[3]).To(BeNumerically("~", math.Sin(h/2), 1e-12))
			Expect(core.HeadingError(h, core.Yaw(q))).To(BeNumerically("~", 0, 1e-9))
		}
	})
})
