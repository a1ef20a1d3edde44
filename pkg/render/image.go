// Package render draws meshes into caller-owned pixel buffers, either by
// rasterizing triangles against a depth buffer or by casting rays through a
// bounding volume hierarchy. It also presents rendered frames in the
// terminal using half-block characters.
package render

import (
	"image"
	"image/color"
)

// Image is a caller-owned color buffer. Pixels are stored row-major; Stride
// is the distance between rows in Pix and may exceed Width, which lets an
// Image describe a sub-rectangle of a larger allocation (see View).
type Image struct {
	Pix    []color.RGBA
	Width  int
	Height int
	Stride int
}

// NewImage allocates an image with a tightly packed stride.
func NewImage(width, height int) Image {
	return Image{
		Pix:    make([]color.RGBA, width*height),
		Width:  width,
		Height: height,
		Stride: width,
	}
}

// View returns the sub-rectangle of img with origin (x, y) and the given
// size, sharing the underlying pixel storage.
func (img Image) View(x, y, width, height int) Image {
	return Image{
		Pix:    img.Pix[y*img.Stride+x:],
		Width:  width,
		Height: height,
		Stride: img.Stride,
	}
}

// Index returns the offset of pixel (x, y) in Pix.
func (img Image) Index(x, y int) int {
	return y*img.Stride + x
}

// Clear fills the image with a solid color.
func (img Image) Clear(c color.RGBA) {
	if img.Width == 0 || img.Height == 0 {
		return
	}

	// Fill the first row by doubling, then replicate it.
	row := img.Pix[:img.Width]
	row[0] = c
	for n := 1; n < len(row); n *= 2 {
		copy(row[n:], row[:n])
	}
	for y := 1; y < img.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+img.Width], row)
	}
}

// ColorModel implements image.Image.
func (img Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (img Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// At implements image.Image.
func (img Image) At(x, y int) color.Color {
	return img.Pix[img.Index(x, y)]
}

// DepthBuffer is a caller-owned depth buffer laid out like Image. Depth
// values are NDC z in [-1, 1]; cleared pixels sit at the far plane.
type DepthBuffer struct {
	Pix    []float64
	Width  int
	Height int
	Stride int
}

// NewDepthBuffer allocates a depth buffer with a tightly packed stride,
// cleared to the far plane.
func NewDepthBuffer(width, height int) *DepthBuffer {
	d := &DepthBuffer{
		Pix:    make([]float64, width*height),
		Width:  width,
		Height: height,
		Stride: width,
	}
	d.Clear()
	return d
}

// View returns the sub-rectangle of d with origin (x, y) and the given size,
// sharing the underlying storage.
func (d *DepthBuffer) View(x, y, width, height int) *DepthBuffer {
	return &DepthBuffer{
		Pix:    d.Pix[y*d.Stride+x:],
		Width:  width,
		Height: height,
		Stride: d.Stride,
	}
}

// Index returns the offset of pixel (x, y) in Pix.
func (d *DepthBuffer) Index(x, y int) int {
	return y*d.Stride + x
}

// Clear resets every depth value to the far plane (1).
func (d *DepthBuffer) Clear() {
	if d.Width == 0 || d.Height == 0 {
		return
	}

	row := d.Pix[:d.Width]
	row[0] = 1
	for n := 1; n < len(row); n *= 2 {
		copy(row[n:], row[:n])
	}
	for y := 1; y < d.Height; y++ {
		copy(d.Pix[y*d.Stride:y*d.Stride+d.Width], row)
	}
}
