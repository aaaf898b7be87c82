package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweep-logger/internal/fsutil"
	"github.com/banshee-data/sweep-logger/internal/sweep"
)

func TestLoadSweepConfig(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("sweeps/config.yml", []byte("lr: [0.1, 0.01]\nlayers: !irange 1:3:1\n"))

	cfg, err := LoadSweepConfig(fsys, "sweeps/./config.yml")
	require.NoError(t, err)

	assert.Equal(t, "sweeps/config.yml", cfg.Path)
	g, ok := cfg.Spec.(sweep.Group)
	require.True(t, ok)
	assert.Equal(t, []string{"lr", "layers"}, g.Keys())
	assert.Equal(t, 6, sweep.CountCombinations(cfg.Spec))
	assert.Equal(t, map[string]any{
		"lr":     []any{0.1, 0.01},
		"layers": "!irange 1:3:1",
	}, cfg.Document)
}

func TestLoadSweepConfig_TopLevelList(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("config.yaml", []byte("- {a: 1}\n- {a: 2, b: [x, y]}\n"))

	cfg, err := LoadSweepConfig(fsys, "config.yaml")
	require.NoError(t, err)
	assert.IsType(t, sweep.Alternatives{}, cfg.Spec)
	assert.Equal(t, 3, sweep.CountCombinations(cfg.Spec))
}

func TestLoadSweepConfig_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("config.json", []byte(`{"a": 1}`))
	fsys.WriteFile("scalar.yml", []byte("42\n"))
	fsys.WriteFile("empty.yml", []byte(""))
	fsys.WriteFile("broken.yml", []byte("a: [1, 2\n"))
	fsys.WriteFile("dup.yml", []byte("a: 1\na: 2\n"))
	fsys.WriteFile("inverted.yml", []byte("lr: !range 1:0:0.1\n"))
	fsys.WriteFile("inverted-int.yml", []byte("n: !irange 10:1:1\n"))
	fsys.WriteFile("empty-key.yml", []byte("\"\": 42\n"))
	fsys.WriteFile("huge.yml", []byte("a: \""+strings.Repeat("x", MaxFileSize)+"\"\n"))

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{"wrong extension", "config.json", ".yml or .yaml"},
		{"missing file", "missing.yml", "file does not exist"},
		{"scalar top level", "scalar.yml", "mapping or a list"},
		{"empty file", "empty.yml", "empty document"},
		{"bad yaml", "broken.yml", "parsing broken.yml"},
		{"duplicate key", "dup.yml", `key "a" already defined`},
		{"too large", "huge.yml", "too large"},
		{"inverted range", "inverted.yml", "min 1 is greater than max 0"},
		{"inverted int range", "inverted-int.yml", "min 10 is greater than max 1"},
		{"empty key around scalar", "empty-key.yml", "got a single value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSweepConfig(fsys, tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigLoad)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadSweepConfig_OSFileSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("a: [1, 2]\nb: [3, 4]\n"), 0o644))

	cfg, err := LoadSweepConfig(fsutil.OSFileSystem{}, path)
	require.NoError(t, err)

	var got []any
	for r := range sweep.EnumerateGrid(cfg.Spec) {
		got = append(got, r)
	}
	assert.Equal(t, []any{
		map[string]any{"a": 1, "b": 3},
		map[string]any{"a": 1, "b": 4},
		map[string]any{"a": 2, "b": 3},
		map[string]any{"a": 2, "b": 4},
	}, got)
}

func TestLoadParams(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("params.yml", []byte("epochs: 10\noptimizer: {name: adam}\n"))
	fsys.WriteFile("list.yml", []byte("- 1\n- 2\n"))

	params, err := LoadParams(fsys, "params.yml")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"epochs":    10,
		"optimizer": map[string]any{"name": "adam"},
	}, params)

	_, err = LoadParams(fsys, "list.yml")
	assert.ErrorIs(t, err, ErrConfigLoad)
}
