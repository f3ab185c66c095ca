package extraction

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	errs "bgscan/internal/errors"
)

// Frame is a normalized image: RGBA, origin at (0,0), longer side capped.
type Frame struct {
	Image *image.RGBA
	// Scale is frame pixels per source pixel.
	Scale float64
	Name  string
}

func (f *Frame) Width() int {
	return f.Image.Bounds().Dx()
}

func (f *Frame) Height() int {
	return f.Image.Bounds().Dy()
}

// Preprocess decodes the source and normalizes it into a fresh Frame.
// Running it again on ImageSource{Image: frame.Image} yields an equal frame.
func (p *Pipeline) Preprocess(ctx context.Context, src Source) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no image source", errs.ErrImageRead)
	}

	img, err := loadImage(src, p.cfg.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrImageRead, src.Name(), err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s: empty image", errs.ErrImageRead, src.Name())
	}

	scale := 1.0
	longest := max(b.Dx(), b.Dy())
	if p.cfg.MaxImageSide > 0 && longest > p.cfg.MaxImageSide {
		scale = float64(p.cfg.MaxImageSide) / float64(longest)
	}
	w := max(1, int(float64(b.Dx())*scale+0.5))
	h := max(1, int(float64(b.Dy())*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if scale == 1 {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}

	return &Frame{Image: dst, Scale: scale, Name: src.Name()}, nil
}

// loadImage reads the header first and refuses images over maxPixels, so a
// small upload cannot expand into a huge bitmap. Decoder panics on hostile
// input become errors.
func loadImage(src Source, maxPixels int) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	w, h, err := src.Size()
	if err != nil {
		return nil, err
	}
	if maxPixels > 0 && int64(w)*int64(h) > int64(maxPixels) {
		return nil, fmt.Errorf("image is %dx%d, over the %d pixel budget", w, h, maxPixels)
	}
	img, err = src.Load()
	if err == nil && img == nil {
		err = fmt.Errorf("no image")
	}
	return img, err
}
