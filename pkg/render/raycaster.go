package render

import (
	"image/color"

	"github.com/fbbdev/rendirt/pkg/bvh"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// Rays are cast tile by tile so consecutive rays traverse the same part of
// the hierarchy.
const tileSize = 32

// CastRays renders the leaf volumes of tree by shooting one ray per pixel
// between the near and far planes of the given model-view-projection
// transform. Pixels whose ray misses every leaf are filled with background.
// It returns the number of pixels that hit a leaf.
//
// depth may be nil; when present it must match img's dimensions and hits are
// depth-tested and recorded like rasterized fragments, so cast leaf boxes
// compose with rasterized geometry.
//
// A nil or empty tree renders nothing and leaves img untouched.
func CastRays(img Image, depth *DepthBuffer, tree *bvh.Tree, mvp math3d.Mat4, shader Shader, background color.RGBA) int {
	if depth != nil && (img.Width != depth.Width || img.Height != depth.Height) {
		panic("render: image and depth buffer dimensions differ")
	}
	if tree == nil || len(tree.Nodes) == 0 {
		return 0
	}

	inv := mvp.Inverse()
	width := float64(img.Width)
	height := float64(img.Height)
	hits := 0

	for tileY := 0; tileY < img.Height; tileY += tileSize {
		maxY := min(tileY+tileSize, img.Height)
		for tileX := 0; tileX < img.Width; tileX += tileSize {
			maxX := min(tileX+tileSize, img.Width)

			for py := tileY; py < maxY; py++ {
				ndcY := 1 - 2*(float64(py)+0.5)/height
				for px := tileX; px < maxX; px++ {
					ndcX := 2*(float64(px)+0.5)/width - 1

					// Unproject the pixel on the near and far planes; the
					// ray parameter t in [0, 1] then maps to NDC depth
					// z = 2t - 1.
					near := inv.MulVec3(math3d.V3(ndcX, ndcY, -1))
					far := inv.MulVec3(math3d.V3(ndcX, ndcY, 1))
					ray := math3d.Ray{Origin: near, Dir: far.Sub(near)}

					hit, ok := tree.CastRay(ray, 0, 1)
					if !ok {
						img.Pix[img.Index(px, py)] = background
						continue
					}

					z := 2*hit.T - 1
					if depth != nil {
						di := depth.Index(px, py)
						if z >= depth.Pix[di] {
							continue
						}
						depth.Pix[di] = z
					}

					frag := math3d.V3(ndcX, ndcY, z)
					img.Pix[img.Index(px, py)] = shader(frag, ray.At(hit.T), hit.Normal)
					hits++
				}
			}
		}
	}

	return hits
}
