package convex

import (
	"fmt"

	"github.com/akmonengine/convex/polytope"
	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// Body is a convex hull given in body space and placed in the scene by a
// rigid transform. A Body implements gjk.Supporter.
type Body struct {
	Name string
	// Hull in body space, grown point by point.
	Local     *polytope.Polytope
	Transform spatial.Transform

	// world-space copy of Local, rebuilt by Scene.Build
	world  *polytope.Polytope
	bounds spatial.AABB
	center mgl64.Vec3
}

// NewBody builds the local hull of points.
func NewBody(name string, points []mgl64.Vec3, transform spatial.Transform, opts ...polytope.Option) (*Body, error) {
	local, err := polytope.NewFromPoints(points, opts...)
	if err != nil {
		return nil, fmt.Errorf("body %q: %w", name, err)
	}

	return &Body{
		Name:      name,
		Local:     local,
		Transform: transform,
		bounds:    spatial.EmptyAABB(),
	}, nil
}

// World returns the world-space hull of the last build, nil before any build.
func (b *Body) World() *polytope.Polytope {
	return b.world
}

// AABB returns the world-space bounds of the last build.
func (b *Body) AABB() spatial.AABB {
	if b.world == nil {
		return spatial.EmptyAABB()
	}
	return b.bounds
}

// Support returns the world-space point of the hull furthest along
// direction. The query is answered in body space so that it never depends on
// the last build.
func (b *Body) Support(direction mgl64.Vec3) mgl64.Vec3 {
	local, err := b.Local.Support(b.Transform.ApplyInverseVector(direction))
	if err != nil {
		return b.Transform.Position
	}
	return b.Transform.Apply(local)
}

// Center returns the world-space centroid of the last build, or the body
// origin before any build. It is read-only, as Support.
func (b *Body) Center() mgl64.Vec3 {
	if b.world == nil {
		return b.Transform.Position
	}
	return b.center
}

func (b *Body) build() error {
	world := b.Local.Clone()
	if err := world.ApplyTransform(b.Transform); err != nil {
		return fmt.Errorf("body %q: %w", b.Name, err)
	}

	b.world = world
	b.bounds = world.BoundingBox()
	b.center = world.Centroid()
	return nil
}
