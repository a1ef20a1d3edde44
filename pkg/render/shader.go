package render

import (
	"image/color"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// Shader computes the color of one fragment. frag holds the sample point in
// normalized device coordinates (z is the interpolated depth), pos the
// interpolated world-space position and normal the surface normal.
type Shader func(frag, pos, normal math3d.Vec3) color.RGBA

// CullMode selects which triangle winding, measured in normalized device
// coordinates, is skipped by the rasterizer.
type CullMode int

const (
	// CullNone rasterizes every triangle.
	CullNone CullMode = iota
	// CullCW skips clockwise triangles (and degenerate, zero-area ones).
	CullCW
	// CullCCW skips counter-clockwise triangles.
	CullCCW
)

// Aliases for the usual convention of counter-clockwise front faces.
const (
	CullBack  = CullCW
	CullFront = CullCCW
)

// String returns the mode name.
func (m CullMode) String() string {
	switch m {
	case CullCW:
		return "cw"
	case CullCCW:
		return "ccw"
	default:
		return "none"
	}
}

// Depth shades fragments by depth: near is black, far is white.
func Depth(frag, _, _ math3d.Vec3) color.RGBA {
	v := channel((frag.Z*0.5 + 0.5) * 255)
	return color.RGBA{v, v, v, 255}
}

// Position returns a shader mapping world position to RGB relative to the
// given bounding box, so each axis spans one color channel.
func Position(box geometry.AABB) Shader {
	size := box.Size()
	return func(_, pos, _ math3d.Vec3) color.RGBA {
		rel := pos.Sub(box.From)
		return color.RGBA{
			channel(safeDiv(rel.X, size.X) * 255),
			channel(safeDiv(rel.Y, size.Y) * 255),
			channel(safeDiv(rel.Z, size.Z) * 255),
			255,
		}
	}
}

// Normal shades fragments by surface normal, mapping [-1, 1] per axis to the
// corresponding color channel.
func Normal(_, _, normal math3d.Vec3) color.RGBA {
	return color.RGBA{
		channel((normal.X*0.5 + 0.5) * 255),
		channel((normal.Y*0.5 + 0.5) * 255),
		channel((normal.Z*0.5 + 0.5) * 255),
		255,
	}
}

// DiffuseDirectional returns a Lambertian shader lit by a directional light
// shining along dir, on top of a constant ambient term.
func DiffuseDirectional(dir math3d.Vec3, ambient, diffuse color.RGBA) Shader {
	dir = dir.Normalize()
	return func(_, _, normal math3d.Vec3) color.RGBA {
		intensity := -normal.Dot(dir)
		if intensity < 0 {
			intensity = 0
		}
		return color.RGBA{
			channel(float64(ambient.R) + intensity*float64(diffuse.R)),
			channel(float64(ambient.G) + intensity*float64(diffuse.G)),
			channel(float64(ambient.B) + intensity*float64(diffuse.B)),
			channel(float64(ambient.A) + intensity*float64(diffuse.A)),
		}
	}
}

// channel clamps a float to the [0, 255] byte range.
func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
