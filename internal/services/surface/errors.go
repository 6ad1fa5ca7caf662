package surface

import "errors"

var (
	// ErrInvalidSample indicates a non-positive strike or expiry, a negative vol, or a non-finite field.
	ErrInvalidSample = errors.New("surface: invalid sample")
	// ErrDuplicateSample indicates a sample at an already occupied (strike, time) position.
	ErrDuplicateSample = errors.New("surface: duplicate sample")
	// ErrDegenerateDomain indicates fewer than three samples or all samples on one line.
	ErrDegenerateDomain = errors.New("surface: degenerate domain")
	// ErrInsufficientNeighbors indicates a node whose neighbours cannot determine a gradient.
	ErrInsufficientNeighbors = errors.New("surface: insufficient neighbors for gradient")
	// ErrInvalidResolution indicates a grid dimension below one.
	ErrInvalidResolution = errors.New("surface: invalid grid resolution")
)
