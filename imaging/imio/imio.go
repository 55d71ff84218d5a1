// Package imio loads and saves grayscale images through an afero
// filesystem. PNG uses the standard library codec, TIFF uses
// golang.org/x/image.
package imio

import (
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/image/tiff"

	"github.com/voxim-io/voxim/imaging"
)

// UnsupportedFormatError reports a file extension no codec is registered
// for.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported image format: %s", e.Path)
}

// Load reads an image, picking the codec from the file extension.
func Load(fs afero.Fs, path string) (*imaging.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return LoadPNG(fs, path)
	case ".tif", ".tiff":
		return LoadTIFF(fs, path)
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// Save writes an image, picking the codec from the file extension.
func Save(fs afero.Fs, path string, img *imaging.Image) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return SavePNG(fs, path, img)
	case ".tif", ".tiff":
		return SaveTIFF(fs, path, img)
	default:
		return &UnsupportedFormatError{Path: path}
	}
}

// LoadPNG reads a PNG file as a grayscale image.
func LoadPNG(fs afero.Fs, path string) (*imaging.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	decoded, err := png.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return imaging.FromImage(decoded), nil
}

// SavePNG writes the image as an 8-bit grayscale PNG.
func SavePNG(fs afero.Fs, path string, img *imaging.Image) error {
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img.ToGray()); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return nil
}

// LoadTIFF reads a TIFF file as a grayscale image.
func LoadTIFF(fs afero.Fs, path string) (*imaging.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	decoded, err := tiff.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return imaging.FromImage(decoded), nil
}

// SaveTIFF writes the image as an 8-bit grayscale TIFF with deflate
// compression.
func SaveTIFF(fs afero.Fs, path string, img *imaging.Image) error {
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() { _ = f.Close() }()

	opts := &tiff.Options{Compression: tiff.Deflate}
	if err := tiff.Encode(f, img.ToGray(), opts); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return nil
}
