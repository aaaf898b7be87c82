package sweep

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleRandom_EmptyAlternatives(t *testing.T) {
	_, err := SampleRandom(Alternatives{}, nil)
	require.ErrorIs(t, err, ErrEmptyChoice)
}

func TestSampleRandom_NestedEmptyAlternatives(t *testing.T) {
	spec := Group{{Key: "lr", Spec: Alternatives{}}}
	_, err := SampleRandom(spec, rand.New(rand.NewPCG(1, 2)))
	require.ErrorIs(t, err, ErrEmptyChoice)
	require.Contains(t, err.Error(), "lr")
}

func TestSampleRandom_GroupResolvesEveryKey(t *testing.T) {
	spec := mustParse(t, "a: [1, 2]\nb: fixed\nc: {d: [x, y]}\n")
	rng := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 20; i++ {
		got, err := SampleRandom(spec, rng)
		require.NoError(t, err)
		m, ok := got.(map[string]any)
		require.True(t, ok)
		require.Len(t, m, 3)
		require.Equal(t, "fixed", m["b"])
		require.Contains(t, []any{1, 2}, m["a"])
	}
}

func TestSampleRandom_PositionalGroup(t *testing.T) {
	spec, err := ChoicesToSpec(Choices(mustParse(t, "[1, 2, 3]")))
	require.NoError(t, err)

	got, err := SampleRandom(spec, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	require.Contains(t, []any{1, 2, 3}, got)
}

func TestSampleRandom_NestedEmptyKey(t *testing.T) {
	spec := mustParse(t, "a: {\"\": [x, y]}\n")
	rng := rand.New(rand.NewPCG(5, 9))

	for i := 0; i < 20; i++ {
		got, err := SampleRandom(spec, rng)
		require.NoError(t, err)
		m, ok := got.(map[string]any)
		require.True(t, ok)
		require.Contains(t, []any{"x", "y"}, m["a"])
	}
}

func TestSampleRandom_TerminalValue(t *testing.T) {
	got, err := SampleRandom(Value{V: 42}, nil)
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestSampleRandom_CoversAllOptions(t *testing.T) {
	spec := mustParse(t, "[a, b, c, d]")
	rng := rand.New(rand.NewPCG(11, 13))

	seen := map[any]int{}
	for i := 0; i < 400; i++ {
		v, err := SampleRandom(spec, rng)
		require.NoError(t, err)
		seen[v]++
	}
	require.Len(t, seen, 4)
	for k, n := range seen {
		// Uniform draws over 400 samples land near 100 each.
		require.Greater(t, n, 50, "option %v drawn too rarely", k)
	}
}

func TestSampleRandom_MemberOfGrid(t *testing.T) {
	spec := mustParse(t, `
- {optimizer: sgd, lr: [0.1, 0.01], momentum: [0, 0.9]}
- {optimizer: adam, lr: !range 0.001:0.003:0.001}
`)
	grid := slices.Collect(EnumerateGrid(spec))
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 50; i++ {
		got, err := SampleRandom(spec, rng)
		require.NoError(t, err)
		require.Contains(t, grid, got)
	}
}
