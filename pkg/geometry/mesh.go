// Package geometry implements the renderer's geometry store: triangle meshes
// held as deduplicated vertex positions plus index-based face records, with a
// cached bounding box.
package geometry

import (
	"sort"

	"github.com/fbbdev/rendirt/pkg/math3d"
)

// Triangle is a raw, unindexed facet as produced by a mesh loader: three
// vertex positions plus a unit surface normal.
type Triangle struct {
	Normal math3d.Vec3
	V      [3]math3d.Vec3
}

// FlatNormal returns the normalized cross product of the triangle's edge
// vectors. Degenerate triangles yield the zero vector.
func (t Triangle) FlatNormal() math3d.Vec3 {
	e1 := t.V[1].Sub(t.V[0])
	e2 := t.V[2].Sub(t.V[0])
	return e1.Cross(e2).Normalize()
}

// Face is a triangle referencing three vertices by index, with a precomputed
// unit surface normal. Index order defines winding for culling.
type Face struct {
	V      [3]int
	Normal math3d.Vec3
}

// Mesh is the geometry store: deduplicated vertex positions, indexed faces
// and a cached bounding box. The bounding box must be refreshed with
// UpdateBounds after any direct mutation of the vertex or face slices.
type Mesh struct {
	Vertices []math3d.Vec3
	Faces    []Face

	bounds AABB
}

// NewMesh creates an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{}
}

// Weld builds a mesh from a triangle soup, merging exactly-coincident vertex
// positions and remapping face indices to the first representative of each
// position. Equality is bit-exact, not epsilon-based. The caller supplies the
// bounding box accumulated while the soup was read.
func Weld(tris []Triangle, bounds AABB) *Mesh {
	mesh := &Mesh{
		Faces:  make([]Face, len(tris)),
		bounds: bounds,
	}
	if len(tris) == 0 {
		return mesh
	}

	type corner struct {
		pos  math3d.Vec3
		face int
		vert int
	}

	corners := make([]corner, 0, 3*len(tris))
	for i, t := range tris {
		mesh.Faces[i].Normal = t.Normal
		for j, p := range t.V {
			corners = append(corners, corner{pos: p, face: i, vert: j})
		}
	}

	sort.Slice(corners, func(i, j int) bool {
		a, b := corners[i].pos, corners[j].pos
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	mesh.Vertices = make([]math3d.Vec3, 0, len(corners)/2)
	for i, c := range corners {
		if i == 0 || c.pos != corners[i-1].pos {
			mesh.Vertices = append(mesh.Vertices, c.pos)
		}
		mesh.Faces[c.face].V[c.vert] = len(mesh.Vertices) - 1
	}

	return mesh
}

// Bounds returns the cached bounding box.
func (m *Mesh) Bounds() AABB {
	return m.bounds
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.bounds.Center()
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of distinct vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceVertices returns the three vertex positions of face i.
func (m *Mesh) FaceVertices(i int) (v0, v1, v2 math3d.Vec3) {
	f := m.Faces[i]
	return m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]]
}

// FaceBounds returns the bounding box of face i.
func (m *Mesh) FaceBounds(i int) AABB {
	v0, v1, v2 := m.FaceVertices(i)
	return BoxFromPoints(v0, v1, v2)
}

// FaceCentroid returns the centroid of face i.
func (m *Mesh) FaceCentroid(i int) math3d.Vec3 {
	v0, v1, v2 := m.FaceVertices(i)
	return v0.Add(v1).Add(v2).Div(3)
}

// UpdateBounds recomputes the cached bounding box from the vertex set.
// An empty mesh collapses to a zero-sized box at the origin.
func (m *Mesh) UpdateBounds() {
	m.bounds = BoxFromPoints(m.Vertices...)
}
