package task

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
)

var _ = Describe("Shaping", func() {
	DescribeTable("reward modes",
		func(mode string, d, want float64) {
			s, err := NewShaping(mode, 0.5, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Reward(d)).To(BeNumerically("~", want, 1e-12))
		},
		Entry("linear", ModeLinear, 1.0, 1.0),
		Entry("square", ModeSquare, 2.0, 0.4),
		Entry("exponential", ModeExponential, 1.0, 2*math.Exp(-2)),
		Entry("exponential at zero", ModeExponential, 0.0, 2.0),
	)

	It("rejects unknown modes", func() {
		_, err := NewShaping("cubic", 1, 1)
		Expect(errors.Is(err, core.ErrUnsupportedMode)).To(BeTrue())
	})

	It("rejects a non-positive exponential coefficient", func() {
		_, err := NewShaping(ModeExponential, 0, 1)
		Expect(errors.Is(err, core.ErrConfiguration)).To(BeTrue())
	})
})

var _ = Describe("New", func() {
	It("builds tasks by name", func() {
		for _, name := range Names() {
			cfg := poseConfig()
			cfg.Name = name
			t, err := New(cfg, rewardConfig(), 4, rand.NewSource(1), zerolog.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Name()).To(Equal(name))
			Expect(t.NumEnvs()).To(Equal(4))
		}
		Expect(Names()).To(Equal([]string{config.TaskGoToPose, config.TaskGoToXY}))
	})

	It("rejects unknown tasks and reward modes", func() {
		cfg := xyConfig()
		cfg.Name = "go_to_moon"
		_, err := New(cfg, rewardConfig(), 4, rand.NewSource(1), zerolog.Nop())
		Expect(errors.Is(err, core.ErrUnsupportedMode)).To(BeTrue())

		rew := rewardConfig()
		rew.HeadingRewardMode = "cubic"
		t, err := New(poseConfig(), rew, 4, rand.NewSource(1), zerolog.Nop())
		Expect(errors.Is(err, core.ErrUnsupportedMode)).To(BeTrue())
		Expect(t).To(BeNil())
	})

	It("rejects invalid task configuration", func() {
		cfg := xyConfig()
		cfg.PositionTolerance = 0
		_, err := New(cfg, rewardConfig(), 4, rand.NewSource(1), zerolog.Nop())
		Expect(errors.Is(err, core.ErrConfiguration)).To(BeTrue())

		_, err = New(xyConfig(), rewardConfig(), 0, rand.NewSource(1), zerolog.Nop())
		Expect(errors.Is(err, core.ErrConfiguration)).To(BeTrue())
	})

	It("is reproducible for a seed", func() {
		draw := func() []float64 {
			t, err := New(poseConfig(), rewardConfig(), 8, rand.NewSource(42), zerolog.Nop())
			Expect(err).NotTo(HaveOccurred())
			positions, orientations := referencePoses(8)
			Expect(t.Goals(core.AllEnvs(8), positions, orientations)).To(Succeed())
			Expect(t.Spawns(core.AllEnvs(8), positions, orientations, 0)).To(Succeed())
			return positions.RawMatrix().Data
		}
		Expect(draw()).To(Equal(draw()))
	})
})
