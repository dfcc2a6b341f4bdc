package services

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

const (
	orderNumberMin      = 1000
	orderNumberMax      = 9999
	orderNumberAttempts = 10
)

// OrderNumberGenerator produces human-readable "#NNNN" order numbers
type OrderNumberGenerator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	attempts int
}

// NewOrderNumberGenerator returns a generator drawing from rng, or from a
// randomly seeded source when rng is nil.
func NewOrderNumberGenerator(rng *rand.Rand) *OrderNumberGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &OrderNumberGenerator{rng: rng, attempts: orderNumberAttempts}
}

func (g *OrderNumberGenerator) candidate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("#%d", orderNumberMin+g.rng.IntN(orderNumberMax-orderNumberMin+1))
}

// Generate draws numbers until exists reports one as free. After the retry
// budget is spent it returns the last candidate anyway, with exhausted set;
// uniqueness is best effort, not a constraint.
func (g *OrderNumberGenerator) Generate(exists func(number string) (bool, error)) (number string, exhausted bool, err error) {
	for i := 0; i < g.attempts; i++ {
		number = g.candidate()
		taken, err := exists(number)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return number, false, nil
		}
	}
	return number, true, nil
}
