package render

import (
	"math"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// Rasterize draws mesh into img under the given model-view-projection
// transform, depth-testing each fragment against depth. It returns the number
// of triangles that survived culling and clipping.
//
// Depth values interpolate linearly in screen space, without perspective
// correction. Fragments are accepted only when strictly nearer than the
// stored depth, so between coincident surfaces the first one drawn wins.
//
// img and depth must have identical dimensions; Rasterize panics otherwise.
func Rasterize(img Image, depth *DepthBuffer, mesh *geometry.Mesh, mvp math3d.Mat4, shader Shader, cull CullMode) int {
	if img.Width != depth.Width || img.Height != depth.Height {
		panic("render: image and depth buffer dimensions differ")
	}

	width := float64(img.Width)
	height := float64(img.Height)
	rendered := 0

	for fi := range mesh.Faces {
		worldA, worldB, worldC := mesh.FaceVertices(fi)
		a := mvp.MulVec3(worldA)
		b := mvp.MulVec3(worldB)
		c := mvp.MulVec3(worldC)

		// Signed double area in NDC decides the winding.
		doubleArea := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		if cull == CullCW && doubleArea <= 0 {
			continue
		}
		if cull == CullCCW && doubleArea > 0 {
			continue
		}

		from := a.Min(b).Min(c)
		to := a.Max(b).Max(c)
		if from.X > 1 || to.X < -1 || from.Y > 1 || to.Y < -1 ||
			from.Z >= 1 || to.Z <= -1 {
			continue
		}

		rendered++
		if doubleArea == 0 {
			// Degenerate but not culled: counts, covers no pixels.
			continue
		}

		// Barycentric coordinates as affine functions of the NDC sample
		// point: lambda_i = (k_i + dx_i*x + dy_i*y) / doubleArea.
		ka := b.X*c.Y - c.X*b.Y
		dxa, dya := b.Y-c.Y, c.X-b.X
		kb := c.X*a.Y - a.X*c.Y
		dxb, dyb := c.Y-a.Y, a.X-c.X
		kc := a.X*b.Y - b.X*a.Y
		dxc, dyc := a.Y-b.Y, b.X-a.X

		// Interpolant deltas relative to vertex a.
		posD1 := worldB.Sub(worldA)
		posD2 := worldC.Sub(worldA)
		zD1 := b.Z - a.Z
		zD2 := c.Z - a.Z

		minX, maxX := pixelSpan(from.X, to.X, width)
		// NDC y points up, pixel rows grow down.
		minY, maxY := pixelSpan(-to.Y, -from.Y, height)

		for py := minY; py < maxY; py++ {
			ndcY := 1 - 2*(float64(py)+0.5)/height
			for px := minX; px < maxX; px++ {
				ndcX := 2*(float64(px)+0.5)/width - 1

				la := (ka + dxa*ndcX + dya*ndcY) / doubleArea
				lb := (kb + dxb*ndcX + dyb*ndcY) / doubleArea
				lc := (kc + dxc*ndcX + dyc*ndcY) / doubleArea
				if la < 0 || lb < 0 || lc < 0 {
					continue
				}

				z := a.Z + lb*zD1 + lc*zD2
				di := depth.Index(px, py)
				if z <= -1 || z >= depth.Pix[di] {
					continue
				}

				pos := worldA.Add(posD1.Scale(lb)).Add(posD2.Scale(lc))
				depth.Pix[di] = z
				img.Pix[img.Index(px, py)] = shader(math3d.V3(ndcX, ndcY, z), pos, mesh.Faces[fi].Normal)
			}
		}
	}

	return rendered
}

// pixelSpan converts an NDC interval to a clamped half-open pixel range.
func pixelSpan(from, to, size float64) (lo, hi int) {
	lo = int(math.Floor((from + 1) * 0.5 * size))
	hi = int(math.Ceil((to + 1) * 0.5 * size))
	if lo < 0 {
		lo = 0
	}
	if hi > int(size) {
		hi = int(size)
	}
	return lo, hi
}
