package task

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/usvsim/internal/config"
)

var _ = Describe("Curriculum", func() {
	schedule := config.CurriculumConfig{
		Enabled: true,
		Warmup:  100,
		End:     300,
		MinDist: 0.5,
		MaxDist: 1.5,
	}

	DescribeTable("spawn bounds",
		func(step int, wantMin, wantMax float64) {
			c := NewCurriculum(schedule, 1, 5, zerolog.Nop())
			rmin, rmax := c.Bounds(step)
			Expect(rmin).To(BeNumerically("~", wantMin, 1e-12))
			Expect(rmax).To(BeNumerically("~", wantMax, 1e-12))
		},
		Entry("before warmup", 0, 0.5, 1.5),
		Entry("at warmup", 100, 0.5, 1.5),
		Entry("midpoint", 200, 0.75, 3.25),
		Entry("at end", 300, 1.0, 5.0),
		Entry("after end", 10000, 1.0, 5.0),
	)

	It("is exact at the schedule endpoints", func() {
		c := NewCurriculum(schedule, 1, 5, zerolog.Nop())
		rmin, rmax := c.Bounds(schedule.Warmup)
		Expect(rmin).To(Equal(schedule.MinDist))
		Expect(rmax).To(Equal(schedule.MaxDist))
		rmin, rmax = c.Bounds(schedule.End)
		Expect(rmin).To(Equal(1.0))
		Expect(rmax).To(Equal(5.0))
	})

	DescribeTable("falls back to the fixed range",
		func(mutate func(*config.CurriculumConfig)) {
			cfg := schedule
			mutate(&cfg)
			c := NewCurriculum(cfg, 1, 5, zerolog.Nop())
			Expect(c.Enabled()).To(BeFalse())
			for _, step := range []int{0, 150, 1000} {
				rmin, rmax := c.Bounds(step)
				Expect(rmin).To(Equal(1.0))
				Expect(rmax).To(Equal(5.0))
			}
		},
		Entry("disabled", func(c *config.CurriculumConfig) { c.Enabled = false }),
		Entry("end before warmup", func(c *config.CurriculumConfig) { c.End = 50 }),
		Entry("end equals warmup", func(c *config.CurriculumConfig) { c.End = c.Warmup }),
		Entry("negative distance", func(c *config.CurriculumConfig) { c.MinDist = -1 }),
	)
})
