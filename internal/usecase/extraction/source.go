package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Source is an opaque reference to a captured image. Size must not decode
// the pixel data.
type Source interface {
	Name() string
	Size() (width, height int, err error)
	Load() (image.Image, error)
}

// FileSource is a path to an encoded image on disk.
type FileSource string

func (s FileSource) Name() string {
	return string(s)
}

func (s FileSource) Size() (int, int, error) {
	f, err := os.Open(string(s))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	return cfg.Width, cfg.Height, err
}

func (s FileSource) Load() (image.Image, error) {
	f, err := os.Open(string(s))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// BytesSource is an encoded image held in memory, e.g. an upload.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string {
	return s.Label
}

func (s BytesSource) Size() (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(s.Data))
	return cfg.Width, cfg.Height, err
}

func (s BytesSource) Load() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(s.Data))
	return img, err
}

// ImageSource wraps an already decoded image. Preprocess copies it, the
// wrapped image is never written to.
type ImageSource struct {
	Label string
	Image image.Image
}

func (s ImageSource) Name() string {
	return s.Label
}

func (s ImageSource) Size() (int, int, error) {
	if s.Image == nil {
		return 0, 0, fmt.Errorf("no image")
	}
	b := s.Image.Bounds()
	return b.Dx(), b.Dy(), nil
}

func (s ImageSource) Load() (image.Image, error) {
	return s.Image, nil
}
