package geometry

import "github.com/fbbdev/rendirt/pkg/math3d"

// AABB is an axis-aligned bounding box described by its minimum (From) and
// maximum (To) corners. A box holding no geometry collapses to a zero-sized
// box at the origin.
type AABB struct {
	From math3d.Vec3
	To   math3d.Vec3
}

// BoxFromPoints returns the smallest AABB enclosing all given points.
func BoxFromPoints(points ...math3d.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	box := AABB{From: points[0], To: points[0]}
	for _, p := range points[1:] {
		box = box.Extend(p)
	}
	return box
}

// Extend returns the box grown to include point p.
func (b AABB) Extend(p math3d.Vec3) AABB {
	return AABB{
		From: b.From.Min(p),
		To:   b.To.Max(p),
	}
}

// Union returns the box enclosing both b and other.
func (b AABB) Union(other AABB) AABB {
	return AABB{
		From: b.From.Min(other.From),
		To:   b.To.Max(other.To),
	}
}

// Contains reports whether other lies entirely inside b.
func (b AABB) Contains(other AABB) bool {
	return b.From.X <= other.From.X && b.From.Y <= other.From.Y && b.From.Z <= other.From.Z &&
		b.To.X >= other.To.X && b.To.Y >= other.To.Y && b.To.Z >= other.To.Z
}

// Center returns the center point of the box.
func (b AABB) Center() math3d.Vec3 {
	return b.From.Add(b.To).Scale(0.5)
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() math3d.Vec3 {
	return b.To.Sub(b.From)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the largest extent.
func (b AABB) LongestAxis() int {
	size := b.Size()
	if size.X > size.Y && size.X > size.Z {
		return 0
	}
	if size.Y > size.Z {
		return 1
	}
	return 2
}
