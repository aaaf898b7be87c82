package sweep

import (
	"fmt"
	"math/rand/v2"
)

// SampleRandom draws one concrete parameter set from spec. Every group entry
// is resolved independently, and each Alternatives node met on the way picks
// one option uniformly at random. A nil rng uses the global source.
func SampleRandom(spec ParamSpec, rng *rand.Rand) (any, error) {
	switch s := spec.(type) {
	case Group:
		out := make(map[string]any, len(s))
		for _, e := range s {
			v, err := SampleRandom(e.Spec, rng)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			out[e.Key] = v
		}
		return out, nil
	case Alternatives:
		if len(s) == 0 {
			return nil, ErrEmptyChoice
		}
		return SampleRandom(s[intN(rng, len(s))], rng)
	case Value:
		return s.V, nil
	}
	return nil, nil
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
