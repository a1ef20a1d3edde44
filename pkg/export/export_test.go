package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/fbbdev/rendirt/pkg/render"
)

func testFrame() render.Image {
	img := render.NewImage(4, 3)
	img.Clear(render.RGB(10, 20, 30))
	img.Pix[img.Index(2, 1)] = render.RGB(200, 100, 50)
	return img
}

func TestEncodersRoundTrip(t *testing.T) {
	frame := testFrame()

	decoders := map[string]func(*bytes.Buffer) (image.Image, error){
		"bmp":  func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) },
		"tiff": func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) },
		"png":  func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
	}
	encoders := map[string]Encoder{"bmp": BMP, "tiff": TIFF, "png": PNG}

	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := enc(&buf, frame); err != nil {
				t.Fatalf("encode: %v", err)
			}

			decoded, err := decoders[name](&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.Bounds() != frame.Bounds() {
				t.Fatalf("bounds = %v, want %v", decoded.Bounds(), frame.Bounds())
			}

			for _, p := range []struct{ x, y int }{{0, 0}, {2, 1}, {3, 2}} {
				want := color.RGBAModel.Convert(frame.At(p.x, p.y))
				got := color.RGBAModel.Convert(decoded.At(p.x, p.y))
				if got != want {
					t.Errorf("pixel (%d,%d) = %v, want %v", p.x, p.y, got, want)
				}
			}
		})
	}
}

func TestForExtension(t *testing.T) {
	for _, ext := range []string{"bmp", ".bmp", "tif", ".tiff", "PNG"} {
		if _, err := ForExtension(ext); err != nil {
			t.Errorf("ForExtension(%q) error = %v", ext, err)
		}
	}
	if _, err := ForExtension(".gif"); err == nil {
		t.Error("ForExtension(.gif) expected error")
	}
}

func TestSave(t *testing.T) {
	frame := testFrame()
	path := filepath.Join(t.TempDir(), "frame.bmp")

	if err := Save(path, frame); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := bmp.Decode(f); err != nil {
		t.Errorf("saved file does not decode: %v", err)
	}

	if err := Save(filepath.Join(t.TempDir(), "frame.xyz"), frame); err == nil {
		t.Error("Save with unsupported extension expected error")
	}
}
