package kdtree

import "errors"

var (
	// ErrDimensionMismatch is returned when a point's coordinate count does
	// not match the dimensionality of the tree.
	ErrDimensionMismatch = errors.New("kdtree: point dimensionality does not match tree")

	// ErrNonFinite is returned when a point has a NaN or infinite
	// coordinate. Such points have no place in the superkey order.
	ErrNonFinite = errors.New("kdtree: point has a non-finite coordinate")

	// ErrInvalidDimensions is returned by New for k < 1.
	ErrInvalidDimensions = errors.New("kdtree: dimensionality must be at least 1")

	// ErrOrderViolation reports that a presorted reference ordering was found
	// out of order during construction. It indicates internal state
	// corruption and is not expected for any input.
	ErrOrderViolation = errors.New("kdtree: reference ordering violated")

	// ErrInvariant is returned by Validate when the ordering invariant, the
	// depth tags or the node count are inconsistent.
	ErrInvariant = errors.New("kdtree: tree invariant violated")
)
