package polytope

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultEpsilon is the tolerance used by Add and Validate unless WithEpsilon overrides it.
const DefaultEpsilon = 1e-6

// OnPlanePolicy decides what happens when an inserted point lies on the
// plane of faces that border the silhouette.
type OnPlanePolicy uint8

const (
	// OnPlaneExtend grows a single bordering on-plane face to include the point.
	// Two or more such faces make the insertion fail with ErrAmbiguousTopology.
	OnPlaneExtend OnPlanePolicy = iota
	// OnPlaneExtendAll grows every bordering on-plane face, then removes the
	// vertices left with only two incident edges.
	OnPlaneExtendAll
	// OnPlaneTriangulate never grows a face: every silhouette edge gets its own
	// triangle and the base polygon is split into triangles when lifted.
	OnPlaneTriangulate
)

func (p OnPlanePolicy) String() string {
	switch p {
	case OnPlaneExtend:
		return "extend"
	case OnPlaneExtendAll:
		return "extend-all"
	case OnPlaneTriangulate:
		return "triangulate"
	default:
		return fmt.Sprintf("OnPlanePolicy(%d)", uint8(p))
	}
}

// ParseOnPlanePolicy maps the names returned by String back to a policy.
func ParseOnPlanePolicy(name string) (OnPlanePolicy, error) {
	switch name {
	case "", "extend":
		return OnPlaneExtend, nil
	case "extend-all":
		return OnPlaneExtendAll, nil
	case "triangulate":
		return OnPlaneTriangulate, nil
	}
	return OnPlaneExtend, fmt.Errorf("polytope: unknown on-plane policy %q", name)
}

// Option configures a Polytope.
type Option func(*Polytope)

// WithEpsilon sets the tolerance used by Add and Validate.
func WithEpsilon(epsilon float64) Option {
	return func(p *Polytope) {
		p.epsilon = epsilon
	}
}

// WithOnPlanePolicy selects how on-plane insertions are resolved.
func WithOnPlanePolicy(policy OnPlanePolicy) Option {
	return func(p *Polytope) {
		p.policy = policy
	}
}

// WithLogger attaches a logger; insertion steps are reported at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Polytope) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCapacity preallocates storage for roughly n vertices.
func WithCapacity(n int) Option {
	return func(p *Polytope) {
		if n > 0 {
			p.capacity = n
		}
	}
}
