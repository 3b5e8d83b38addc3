// Package selector picks reviewer candidates uniformly at random.
package selector

// Source yields uniform draws in [0, n). *rand.Rand satisfies it, tests
// inject a fixed source instead of relying on the process-global generator.
type Source interface {
	Intn(n int) int
}

type Selector struct {
	src Source
}

func New(src Source) *Selector {
	return &Selector{src: src}
}

// SampleUpTo returns min(k, len(candidates)) distinct entries chosen
// uniformly without replacement. The input slice is left untouched.
func (s *Selector) SampleUpTo(candidates []string, k int) []string {
	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return nil
	}

	pool := append([]string(nil), candidates...)
	for i := 0; i < k; i++ {
		j := i + s.src.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:k]
}

// PickOne draws a single candidate; ok is false when there is nothing to pick.
func (s *Selector) PickOne(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	return candidates[s.src.Intn(len(candidates))], true
}
