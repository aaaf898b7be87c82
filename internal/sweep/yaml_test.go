package sweep

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML_Structure(t *testing.T) {
	spec, doc, err := ParseYAML([]byte(`
optimizer: adam
lr: [0.1, 0.01]
model:
  depth: !irange 2:6:2
`))
	require.NoError(t, err)

	g, ok := spec.(Group)
	require.True(t, ok)
	assert.Equal(t, []string{"optimizer", "lr", "model"}, g.Keys())

	lr, ok := g.Lookup("lr")
	require.True(t, ok)
	assert.Equal(t, Alternatives{Value{V: 0.1}, Value{V: 0.01}}, lr)

	model, _ := g.Lookup("model")
	depth, _ := model.(Group).Lookup("depth")
	assert.Equal(t, Alternatives{Value{V: 2}, Value{V: 4}, Value{V: 6}}, depth)

	assert.Equal(t, map[string]any{
		"optimizer": "adam",
		"lr":        []any{0.1, 0.01},
		"model":     map[string]any{"depth": "!irange 2:6:2"},
	}, doc)
}

func TestParseYAML_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"duplicate_key", "a: 1\na: 2\n"},
		{"nested_duplicate_key", "a:\n  b: 1\n  b: 2\n"},
		{"bad_range", "lr: !range 0:1\n"},
		{"zero_step", "lr: !irange 0:10:0\n"},
		{"complex_key", "? [a, b]\n: 1\n"},
		{"malformed", "a: [1, 2\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseYAML([]byte(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestParseYAML_Anchors(t *testing.T) {
	spec, _, err := ParseYAML([]byte(`
base: &lrs [0.1, 0.2]
other: *lrs
`))
	require.NoError(t, err)
	assert.Equal(t, 4, CountCombinations(spec))
}

func TestParseYAML_UnknownLocalTag(t *testing.T) {
	spec, _, err := ParseYAML([]byte("path: !env HOME\n"))
	require.NoError(t, err)
	v, _ := spec.(Group).Lookup("path")
	assert.Equal(t, Value{V: "HOME"}, v)
}

func TestGroupMarshalJSON_KeepsOrder(t *testing.T) {
	spec := mustParse(t, "z: 1\na: [x, y]\nm: {}\n")
	b, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":["x","y"],"m":{}}`, string(b))
}

func TestParseYAML_EmptyKeyIsTransparent(t *testing.T) {
	assert.Equal(t, mustParse(t, "[1, 2, 3]\n"), mustParse(t, "\"\": [1, 2, 3]\n"))
	assert.Equal(t,
		Group{{Key: "a", Spec: Alternatives{Value{V: "x"}, Value{V: "y"}}}},
		mustParse(t, "a: {\"\": [x, y]}\n"))

	// A "" key next to other keys is an ordinary key.
	g := mustParse(t, "\"\": 1\nb: 2\n").(Group)
	assert.Equal(t, []string{"", "b"}, g.Keys())

	_, doc, err := ParseYAML([]byte("a: {\"\": [x, y]}\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"": []any{"x", "y"}}}, doc)
}

func TestDecodeJSON_EmptyKeyIsTransparent(t *testing.T) {
	spec, err := DecodeJSON([]byte(`{"a":{"":[1,2]}}`))
	require.NoError(t, err)
	assert.Equal(t, Group{{Key: "a", Spec: Alternatives{Value{V: int64(1)}, Value{V: int64(2)}}}}, spec)
}
