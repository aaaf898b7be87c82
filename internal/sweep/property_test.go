package sweep

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

var specKeys = []string{"a", "b", "c", "d", "e"}

// genSpec draws a random ParamSpec at most depth levels deep.
func genSpec(t *rapid.T, depth int) ParamSpec {
	kind := 0
	if depth > 0 {
		kind = rapid.IntRange(0, 2).Draw(t, "kind")
	}
	switch kind {
	case 1:
		n := rapid.IntRange(0, 3).Draw(t, "options")
		alts := make(Alternatives, n)
		for i := range alts {
			alts[i] = genSpec(t, depth-1)
		}
		return alts
	case 2:
		keys := rapid.SliceOfNDistinct(rapid.SampledFrom(specKeys), 0, 3, rapid.ID[string]).Draw(t, "keys")
		g := make(Group, len(keys))
		for i, k := range keys {
			g[i] = GroupEntry{Key: k, Spec: genSpec(t, depth-1)}
		}
		return g
	}
	return Value{V: rapid.IntRange(0, 9).Draw(t, "value")}
}

func TestProperty_CountMatchesEnumeration(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := genSpec(t, 4)
		got := len(slices.Collect(EnumerateGrid(spec)))
		if want := CountCombinations(spec); got != want {
			t.Fatalf("CountCombinations = %d, enumeration produced %d", want, got)
		}
	})
}

func TestProperty_SampleIsGridMember(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := genSpec(t, 4)
		seed := rapid.Uint64().Draw(t, "seed")
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

		got, err := SampleRandom(spec, rng)
		if errors.Is(err, ErrEmptyChoice) {
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for combo := range EnumerateGrid(spec) {
			if cmp.Equal(combo, got) {
				return
			}
		}
		t.Fatalf("sample %v not produced by grid enumeration", got)
	})
}

func TestProperty_ChoicesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := genSpec(t, 3)
		back, err := ChoicesToSpec(Choices(spec))
		if err != nil {
			t.Fatalf("ChoicesToSpec: %v", err)
		}
		want := fmt.Sprint(slices.Collect(EnumerateGrid(spec)))
		if got := fmt.Sprint(slices.Collect(EnumerateGrid(back))); got != want {
			t.Fatalf("round trip changed the grid:\nwant %s\ngot  %s", want, got)
		}
	})
}
