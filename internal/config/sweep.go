// Package config loads sweep configuration files.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/sweep-logger/internal/fsutil"
	"github.com/banshee-data/sweep-logger/internal/sweep"
)

// DefaultConfigPath is the sweep configuration read when no path is given.
const DefaultConfigPath = "config.yml"

// MaxFileSize caps the size of a configuration file.
const MaxFileSize = 1 * 1024 * 1024 // 1MB

// ErrConfigLoad wraps every failure to read or decode a configuration file.
var ErrConfigLoad = errors.New("failed to load sweep config")

// SweepConfig is a decoded sweep configuration.
type SweepConfig struct {
	Path string
	// Spec is the parameter space the sweep expands.
	Spec sweep.ParamSpec
	// Document is the file as a plain mapping or list, recorded in sweep
	// metadata under "config".
	Document any
}

// LoadSweepConfig reads and decodes the YAML file at path.
// The file must have a .yml or .yaml extension and be under MaxFileSize.
func LoadSweepConfig(fsys fsutil.FileSystem, path string) (*SweepConfig, error) {
	data, err := readConfig(fsys, path)
	if err != nil {
		return nil, err
	}
	spec, doc, err := sweep.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrConfigLoad, path, err)
	}
	cfg := &SweepConfig{Path: filepath.Clean(path), Spec: spec, Document: doc}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigLoad, path, err)
	}
	return cfg, nil
}

// Validate checks that the top level is a mapping or a list.
func (c *SweepConfig) Validate() error {
	switch c.Spec.(type) {
	case sweep.Group, sweep.Alternatives:
		return nil
	}
	if _, ok := c.Spec.(sweep.Value); ok {
		return errors.New("top level must be a mapping or a list, got a single value")
	}
	return fmt.Errorf("top level must be a mapping or a list, got %T", c.Spec)
}

// LoadParams reads a YAML mapping of fixed parameters, as passed to a run
// alongside its sweep parameters.
func LoadParams(fsys fsutil.FileSystem, path string) (map[string]any, error) {
	data, err := readConfig(fsys, path)
	if err != nil {
		return nil, err
	}
	_, doc, err := sweep.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrConfigLoad, path, err)
	}
	params, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: parameters must be a mapping, got %T", ErrConfigLoad, path, doc)
	}
	return params, nil
}

func readConfig(fsys fsutil.FileSystem, path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yml" && ext != ".yaml" {
		return nil, fmt.Errorf("%w: config file must have .yml or .yaml extension, got %q", ErrConfigLoad, ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrConfigLoad, info.Size(), MaxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	return data, nil
}
