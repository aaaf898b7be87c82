package sweep

import "errors"

var (
	// ErrEmptyChoice is returned when random sampling reaches an
	// Alternatives node with no options.
	ErrEmptyChoice = errors.New("cannot choose from an empty set of alternatives")

	// ErrInvalidMethod is returned for an unrecognised sweep method name.
	ErrInvalidMethod = errors.New("invalid sweep method")

	// ErrGridExhausted is returned when a grid index is past the last combination.
	ErrGridExhausted = errors.New("grid index past the last combination")
)
