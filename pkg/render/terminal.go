package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw presents the image on a terminal screen using half-block cells.
// Each terminal row shows two image rows: the upper half block character
// takes the top pixel as foreground and the bottom pixel as background, so
// the image height should be twice the terminal height.
func (img Image) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := row * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col < img.Width; col++ {
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(img.pixelAt(col, topY)),
					Bg: rgbaToColor(img.pixelAt(col, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// pixelAt returns the color at (x, y), or transparent black out of bounds.
func (img Image) pixelAt(x, y int) color.RGBA {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return color.RGBA{}
	}
	return img.Pix[img.Index(x, y)]
}

// rgbaToColor converts color.RGBA to Go's color.Color interface.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil // Transparent = no color
	}
	return c
}

// RGB creates an opaque color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// TerminalRenderer presents frames on a terminal. It owns the mapping
// between terminal cells and image pixels.
type TerminalRenderer struct {
	term   *uv.Terminal
	width  int
	height int
}

// NewTerminalRenderer creates a renderer for a terminal of the given size in
// cells.
func NewTerminalRenderer(term *uv.Terminal, width, height int) *TerminalRenderer {
	return &TerminalRenderer{term: term, width: width, height: height}
}

// FramebufferSize returns the pixel dimensions frames should have: one
// column per pixel horizontally, two pixels per terminal row vertically.
func (r *TerminalRenderer) FramebufferSize() (width, height int) {
	return r.width, r.height * 2
}

// Render draws img onto the terminal's cell grid.
func (r *TerminalRenderer) Render(img Image) {
	img.Draw(r.term, uv.Rect(0, 0, r.width, r.height))
}

// Flush pushes the drawn cells to the terminal.
func (r *TerminalRenderer) Flush() error {
	return r.term.Display()
}
