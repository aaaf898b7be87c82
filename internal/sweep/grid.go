package sweep

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat/combin"
)

// EnumerateGrid yields every combination described by spec.
//
// Alternatives contribute the concatenation of their options' combinations,
// groups contribute the cross product of their entries (first entry varies
// slowest) and values contribute themselves once. An empty group yields a
// single empty map. The sequence holds no state between iterations, so it can
// be ranged over any number of times.
func EnumerateGrid(spec ParamSpec) iter.Seq[any] {
	return func(yield func(any) bool) {
		enumerate(spec, yield)
	}
}

// enumerate returns false once yield has asked to stop.
func enumerate(spec ParamSpec, yield func(any) bool) bool {
	switch s := spec.(type) {
	case Group:
		return enumerateGroup(s, yield)
	case Alternatives:
		for _, opt := range s {
			if !enumerate(opt, yield) {
				return false
			}
		}
		return true
	case Value:
		return yield(s.V)
	}
	return yield(nil)
}

func enumerateGroup(g Group, yield func(any) bool) bool {
	if len(g) == 0 {
		return yield(map[string]any{})
	}

	parts := make([][]any, len(g))
	lens := make([]int, len(g))
	for i, e := range g {
		parts[i] = slices.Collect(EnumerateGrid(e.Spec))
		if len(parts[i]) == 0 {
			// One entry with no options empties the whole product.
			return true
		}
		lens[i] = len(parts[i])
	}

	gen := combin.NewCartesianGenerator(lens)
	idx := make([]int, len(g))
	for gen.Next() {
		idx = gen.Product(idx)
		out := make(map[string]any, len(g))
		for i, e := range g {
			out[e.Key] = parts[i][idx[i]]
		}
		if !yield(out) {
			return false
		}
	}
	return true
}

// CountCombinations returns the number of combinations EnumerateGrid yields
// for spec: alternatives add, group entries multiply, a value counts once.
// Counts too large for an int saturate at math.MaxInt.
func CountCombinations(spec ParamSpec) int {
	switch s := spec.(type) {
	case Group:
		n := 1
		for _, e := range s {
			c := CountCombinations(e.Spec)
			switch {
			case c == 0:
				return 0
			case n > math.MaxInt/c:
				n = math.MaxInt
			default:
				n *= c
			}
		}
		return n
	case Alternatives:
		n := 0
		for _, opt := range s {
			c := CountCombinations(opt)
			if n > math.MaxInt-c {
				n = math.MaxInt
				continue
			}
			n += c
		}
		return n
	}
	return 1
}

// GridAt returns the index-th combination of EnumerateGrid(spec).
func GridAt(spec ParamSpec, index int) (any, error) {
	if index < 0 {
		return nil, fmt.Errorf("grid index must be non-negative, got %d", index)
	}
	i := 0
	for combo := range EnumerateGrid(spec) {
		if i == index {
			return combo, nil
		}
		i++
	}
	return nil, fmt.Errorf("%w: index %d of %d", ErrGridExhausted, index, i)
}
