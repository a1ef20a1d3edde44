// Package export writes rendered frames to image files. BMP and TIFF match
// what downstream mesh tooling commonly expects; PNG is the default for
// everything else.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// BMP writes img in Windows bitmap format.
func BMP(w io.Writer, img image.Image) error {
	return bmp.Encode(w, img)
}

// TIFF writes img as an uncompressed TIFF.
func TIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Uncompressed})
}

// PNG writes img in PNG format.
func PNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Encoder writes an image to a stream.
type Encoder func(io.Writer, image.Image) error

// ForExtension returns the encoder matching a file extension (with or
// without the leading dot), or an error for unsupported formats.
func ForExtension(ext string) (Encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "png":
		return PNG, nil
	default:
		return nil, fmt.Errorf("export: unsupported image format %q", ext)
	}
}

// Save writes img to path, picking the format from the file extension.
func Save(path string, img image.Image) error {
	enc, err := ForExtension(filepath.Ext(path))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := enc(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
