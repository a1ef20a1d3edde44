// Package glb imports glTF and GLB geometry as indexed triangle meshes.
// Only triangle primitives are read; positions are welded into a shared
// vertex pool and face normals are recomputed from winding.
package glb

import (
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// Load reads a .gltf or .glb file and returns its combined triangle
// geometry. Non-triangle primitives are skipped.
func Load(path string) (*geometry.Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("glb: open: %w", err)
	}
	return fromDocument(doc)
}

func fromDocument(doc *gltf.Document) (*geometry.Mesh, error) {
	var (
		tris   []geometry.Triangle
		bounds geometry.AABB
	)

	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			// Mode 0 covers documents that omit the field.
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				continue
			}

			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			positions, err := readVec3Accessor(doc, posIdx)
			if err != nil {
				return nil, fmt.Errorf("glb: mesh %q: positions: %w", m.Name, err)
			}

			var indices []int
			if prim.Indices != nil {
				indices, err = readIndices(doc, *prim.Indices)
				if err != nil {
					return nil, fmt.Errorf("glb: mesh %q: indices: %w", m.Name, err)
				}
			} else {
				indices = make([]int, len(positions))
				for i := range indices {
					indices[i] = i
				}
			}

			for i := 0; i+2 < len(indices); i += 3 {
				for _, idx := range indices[i : i+3] {
					if idx < 0 || idx >= len(positions) {
						return nil, fmt.Errorf("glb: mesh %q: index %d out of range", m.Name, idx)
					}
				}

				var tri geometry.Triangle
				tri.V = [3]math3d.Vec3{
					positions[indices[i]],
					positions[indices[i+1]],
					positions[indices[i+2]],
				}
				tri.Normal = tri.FlatNormal()

				for j, v := range tri.V {
					if len(tris) == 0 && j == 0 {
						bounds = geometry.AABB{From: v, To: v}
					} else {
						bounds = bounds.Extend(v)
					}
				}
				tris = append(tris, tri)
			}
		}
	}

	return geometry.Weld(tris, bounds), nil
}

// readVec3Accessor reads VEC3 float data from an accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float components, got %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range result {
		off := i * stride
		result[i] = math3d.V3(
			float64(readFloat32(data[off:])),
			float64(readFloat32(data[off+4:])),
			float64(readFloat32(data[off+8:])),
		)
	}
	return result, nil
}

// readIndices reads scalar index data from an accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR, got %v", accessor.Type)
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unsupported index component type %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range result {
		off := i * stride
		switch size {
		case 1:
			result[i] = int(data[off])
		case 2:
			result[i] = int(uint16(data[off]) | uint16(data[off+1])<<8)
		default:
			result[i] = int(uint32(data[off]) | uint32(data[off+1])<<8 |
				uint32(data[off+2])<<16 | uint32(data[off+3])<<24)
		}
	}
	return result, nil
}

// accessorBytes resolves an accessor to its backing bytes and element
// stride. Only embedded (GLB) buffers are supported.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}

	view := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[view.Buffer]
	if buffer.URI != "" {
		return nil, 0, fmt.Errorf("external buffers not supported")
	}
	if buffer.Data == nil {
		return nil, 0, fmt.Errorf("buffer has no data")
	}

	stride := view.ByteStride
	if stride == 0 {
		stride = elemSize
	}

	start := view.ByteOffset + accessor.ByteOffset
	need := start + (accessor.Count-1)*stride + elemSize
	if accessor.Count == 0 {
		need = start
	}
	if need > len(buffer.Data) {
		return nil, 0, fmt.Errorf("accessor overruns buffer (%d > %d)", need, len(buffer.Data))
	}

	return buffer.Data[start:], stride, nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
