package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// recordSize is the wire size of one binary facet: a 12-byte normal, three
// 12-byte vertices and a 2-byte attribute word that is read and ignored.
const recordSize = 50

// loadBinary parses the binary encoding: an 80-byte header, a little-endian
// uint32 facet count, then one 50-byte record per facet.
func loadBinary(br *bufio.Reader, cfg config) (*geometry.Mesh, error) {
	if _, err := io.CopyN(io.Discard, br, headerSize); err != nil {
		return nil, fmt.Errorf("%w: header", ErrFileTruncated)
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: facet count", ErrFileTruncated)
	}

	// Cap the preallocation so a corrupt count cannot force a huge alloc
	// before the first short read is noticed.
	capHint := int(count)
	if capHint > 1<<20 {
		capHint = 1 << 20
	}

	var (
		tris   = make([]geometry.Triangle, 0, capHint)
		bounds geometry.AABB
		record [recordSize]byte
	)

	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(br, record[:]); err != nil {
			return nil, fmt.Errorf("%w: facet %d", ErrFileTruncated, len(tris))
		}

		var tri geometry.Triangle
		tri.Normal = decodeVec3(record[0:12])
		for j := range tri.V {
			v := decodeVec3(record[12+12*j : 24+12*j])
			tri.V[j] = v

			if len(tris) == 0 && j == 0 {
				bounds = geometry.AABB{From: v, To: v}
			} else {
				bounds = bounds.Extend(v)
			}
		}

		if !cfg.useFileNormals {
			tri.Normal = tri.FlatNormal()
		}
		tris = append(tris, tri)
	}

	return geometry.Weld(tris, bounds), nil
}

// decodeVec3 reads three little-endian float32 values and widens them.
func decodeVec3(b []byte) math3d.Vec3 {
	return math3d.V3(
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
	)
}
