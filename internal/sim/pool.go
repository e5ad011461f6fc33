package sim

import (
	"sync"

	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/integrators"
)

// integratorPool hands out integrators to parallel workers. Integrators keep
// scratch buffers, so one instance serves one goroutine at a time.
type integratorPool struct {
	pool sync.Pool
	name string
}

func newIntegratorPool(name string) (*integratorPool, error) {
	// Fail on unknown names here instead of inside a worker.
	if _, err := integrators.New(name); err != nil {
		return nil, err
	}
	return &integratorPool{
		name: name,
		pool: sync.Pool{
			New: func() interface{} {
				integ, _ := integrators.New(name)
				return integ
			},
		},
	}, nil
}

func (p *integratorPool) Get() core.Integrator {
	return p.pool.Get().(core.Integrator)
}

func (p *integratorPool) Put(integ core.Integrator) {
	p.pool.Put(integ)
}
