package polytope

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned when a face, edge or vertex index is outside current bounds.
	ErrIndexOutOfRange = errors.New("polytope: index out of range")

	// ErrEmptyPolytope is returned by queries that need at least one face.
	ErrEmptyPolytope = errors.New("polytope: polytope has no faces")

	// ErrNoNeighbor is returned when walking across a boundary edge that has no twin,
	// which only happens while the polytope is a single planar face.
	ErrNoNeighbor = errors.New("polytope: edge has no twin")

	// ErrAmbiguousTopology is returned when an inserted point lies on the plane of two or
	// more faces bordering the silhouette and the polytope's OnPlanePolicy does not resolve it.
	// The polytope is left unchanged.
	ErrAmbiguousTopology = errors.New("polytope: point is on the plane of several silhouette faces")

	// ErrInvalidEpsilon is returned for a negative, NaN or infinite tolerance.
	ErrInvalidEpsilon = errors.New("polytope: epsilon must be finite and non-negative")

	// ErrNonFinitePoint is returned when a point or direction has a NaN or infinite coordinate.
	ErrNonFinitePoint = errors.New("polytope: non-finite coordinate")

	// ErrInvariantViolated is returned by Validate.
	ErrInvariantViolated = errors.New("polytope: invariant violated")
)

func indexError(kind string, index, length int) error {
	return fmt.Errorf("%w: %s %d (have %d)", ErrIndexOutOfRange, kind, index, length)
}

func invariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolated, fmt.Sprintf(format, args...))
}
