package seed

const (
	sourceIncrement = 0x6d2b79f5
	twoPow32        = 4294967296.0
)

// Source is a deterministic pseudo-random generator (mulberry32).
// It is not safe for concurrent use; the generator creates one per variant.
type Source struct {
	state uint32
}

// NewSource seeds a Source. A zero seed is replaced by 1 so the state is never zero.
func NewSource(seed uint32) *Source {
	if seed == 0 {
		seed = 1
	}
	return &Source{state: seed}
}

// Float64 returns the next value in [0,1).
func (s *Source) Float64() float64 {
	s.state += sourceIncrement
	t := s.state
	t = (t ^ t>>15) * (t | 1)
	t = (t + (t^t>>7)*(t|61)) ^ t
	return float64(t^t>>14) / twoPow32
}

// Intn returns floor(Float64()*n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("seed: Intn called with non-positive n")
	}
	return int(s.Float64() * float64(n))
}
