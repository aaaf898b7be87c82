package sweep

import (
	"fmt"
	"strings"
)

// SweepMethod selects how a sweep expands its parameters.
type SweepMethod int

const (
	// Grid enumerates every combination once, in order.
	Grid SweepMethod = iota + 1
	// Random draws one independent sample per run.
	Random
)

// ParseSweepMethod parses "grid" or "random" (case-insensitive).
func ParseSweepMethod(s string) (SweepMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grid":
		return Grid, nil
	case "random":
		return Random, nil
	}
	return 0, fmt.Errorf("%w: %q (must be grid or random)", ErrInvalidMethod, s)
}

func (m SweepMethod) String() string {
	switch m {
	case Grid:
		return "grid"
	case Random:
		return "random"
	}
	return fmt.Sprintf("SweepMethod(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m SweepMethod) MarshalText() ([]byte, error) {
	if m != Grid && m != Random {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SweepMethod) UnmarshalText(b []byte) error {
	v, err := ParseSweepMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
