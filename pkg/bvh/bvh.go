// Package bvh builds bounding volume hierarchies over mesh faces and casts
// rays against them. The tree is stored as a flat node array with the root at
// index 0; building reorders the mesh's faces so that each leaf owns a
// contiguous face range, and reindexes vertices in first-use order for
// traversal locality.
package bvh

import (
	"sort"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// DefaultLeafSize is the face count below which a range becomes a leaf.
const DefaultLeafSize = 4

// Node is one entry of the flat tree array. A node with Count > 0 is a leaf
// owning faces [First, First+Count) of the reordered mesh; otherwise Left and
// Right index its children.
type Node struct {
	Box   geometry.AABB
	Left  int
	Right int
	First int
	Count int
}

// Leaf reports whether the node is a leaf.
func (n Node) Leaf() bool {
	return n.Count > 0
}

// Tree is a bounding volume hierarchy over a mesh's faces.
type Tree struct {
	Nodes []Node
}

// Build constructs a tree over mesh, splitting face ranges until they hold at
// most leafSize faces (DefaultLeafSize when leafSize < 1).
//
// Build mutates the mesh: faces are reordered into leaf order and vertices
// are renumbered in order of first use. Face indices held by the caller are
// invalidated; the geometry itself is unchanged.
func Build(mesh *geometry.Mesh, leafSize int) *Tree {
	if leafSize < 1 {
		leafSize = DefaultLeafSize
	}
	if mesh.FaceCount() == 0 {
		return &Tree{}
	}

	b := &builder{mesh: mesh, leafSize: leafSize}
	b.split(0, mesh.FaceCount())
	reindexVertices(mesh)

	return &Tree{Nodes: b.nodes}
}

type builder struct {
	mesh     *geometry.Mesh
	leafSize int
	nodes    []Node
}

// split builds the subtree for faces [first, first+count) and returns its
// node index.
func (b *builder) split(first, count int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	box := b.mesh.FaceBounds(first)
	for i := first + 1; i < first+count; i++ {
		box = box.Union(b.mesh.FaceBounds(i))
	}

	if count <= b.leafSize {
		b.nodes[idx] = Node{Box: box, First: first, Count: count}
		return idx
	}

	axis := box.LongestAxis()
	faces := b.mesh.Faces[first : first+count]
	sort.Slice(faces, func(i, j int) bool {
		return b.centroidOn(faces[i], axis) < b.centroidOn(faces[j], axis)
	})

	// Partition at the first centroid past the box midpoint; fall back to a
	// median split when every centroid lands on one side.
	mid := box.Center().Component(axis)
	cut := sort.Search(count, func(i int) bool {
		return b.centroidOn(faces[i], axis) > mid
	})
	if cut == 0 || cut == count {
		cut = count / 2
	}

	left := b.split(first, cut)
	right := b.split(first+cut, count-cut)
	b.nodes[idx] = Node{Box: box, Left: left, Right: right}
	return idx
}

func (b *builder) centroidOn(f geometry.Face, axis int) float64 {
	v := b.mesh.Vertices
	sum := v[f.V[0]].Component(axis) + v[f.V[1]].Component(axis) + v[f.V[2]].Component(axis)
	return sum / 3
}

// reindexVertices renumbers vertices in order of first use by the reordered
// faces and drops any that are no longer referenced.
func reindexVertices(mesh *geometry.Mesh) {
	remap := make([]int, len(mesh.Vertices))
	for i := range remap {
		remap[i] = -1
	}

	verts := make([]math3d.Vec3, 0, len(mesh.Vertices))
	for fi := range mesh.Faces {
		for j, old := range mesh.Faces[fi].V {
			if remap[old] < 0 {
				remap[old] = len(verts)
				verts = append(verts, mesh.Vertices[old])
			}
			mesh.Faces[fi].V[j] = remap[old]
		}
	}

	mesh.Vertices = verts
	mesh.UpdateBounds()
}
