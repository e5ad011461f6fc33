package metrics

// Outcomes counts how finished episodes ended.
type Outcomes struct {
	Episodes    int
	Successes   int
	OutOfBounds int
	Timeouts    int
}

// Observe classifies one finished episode. Success wins over a timeout on
// the same step.
func (o *Outcomes) Observe(goalReached int, killed, timedOut bool) {
	o.Episodes++
	switch {
	case killed && goalReached > 0:
		o.Successes++
	case killed:
		o.OutOfBounds++
	case timedOut:
		o.Timeouts++
	}
}

func (o *Outcomes) SuccessRate() float64 {
	if o.Episodes == 0 {
		return 0
	}
	return float64(o.Successes) / float64(o.Episodes)
}

func (o *Outcomes) Reset() {
	*o = Outcomes{}
}
