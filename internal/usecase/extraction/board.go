package extraction

import (
	"context"
	"image/color"
	"math"

	"bgscan/internal/domain/vision"
)

const (
	// backgroundDistance is the RGB distance above which a pixel no longer
	// belongs to the background around the board.
	backgroundDistance = 60.0
	// denseRatio marks a row or column as part of the board when its
	// foreground count reaches this share of the densest one.
	denseRatio = 0.5
)

// DetectBoard locates the board as the largest dense block of pixels that
// differ from the frame border colour. It never fails on a readable frame:
// a missing board is reported through IsValid.
func (p *Pipeline) DetectBoard(ctx context.Context, f *Frame) (vision.BoardDetection, error) {
	w, h := f.Width(), f.Height()
	bg := borderColor(f)

	rows := make([]int, h)
	cols := make([]int, w)
	for y := 0; y < h; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return vision.BoardDetection{}, err
			}
		}
		for x := 0; x < w; x++ {
			if colorDistance(f.Image.RGBAAt(x, y), bg) > backgroundDistance {
				rows[y]++
				cols[x]++
			}
		}
	}

	y0, y1 := denseRun(rows)
	x0, x1 := denseRun(cols)
	if y1 <= y0 || x1 <= x0 {
		return vision.BoardDetection{IsValid: false}, nil
	}

	rect := vision.Rect{X: float64(x0), Y: float64(y0), Width: float64(x1 - x0), Height: float64(y1 - y0)}

	inside := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if colorDistance(f.Image.RGBAAt(x, y), bg) > backgroundDistance {
				inside++
			}
		}
	}
	fill := float64(inside) / rect.Area()
	confidence := clamp01(fill * aspectScore(rect.Width/rect.Height))

	areaRatio := rect.Area() / float64(w*h)
	return vision.BoardDetection{
		Corners:    rect.Corners(),
		Confidence: confidence,
		BoardRect:  rect,
		IsValid:    areaRatio >= p.cfg.MinBoardAreaRatio,
	}, nil
}

// borderColor averages a thin frame around the image.
func borderColor(f *Frame) color.RGBA {
	w, h := f.Width(), f.Height()
	margin := max(1, min(w, h)/50)

	var r, g, b, n float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= margin && x < w-margin && y >= margin && y < h-margin {
				x = w - margin - 1
				continue
			}
			c := f.Image.RGBAAt(x, y)
			r += float64(c.R)
			g += float64(c.G)
			b += float64(c.B)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}

// denseRun returns the longest half-open run of indices whose count reaches
// denseRatio of the maximum. An all-zero histogram yields an empty run.
func denseRun(counts []int) (int, int) {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	if peak == 0 {
		return 0, 0
	}
	limit := float64(peak) * denseRatio

	bestStart, bestEnd, start := 0, 0, -1
	for i := 0; i <= len(counts); i++ {
		dense := i < len(counts) && float64(counts[i]) >= limit
		switch {
		case dense && start < 0:
			start = i
		case !dense && start >= 0:
			if i-start > bestEnd-bestStart {
				bestStart, bestEnd = start, i
			}
			start = -1
		}
	}
	return bestStart, bestEnd
}

// aspectScore is 1 for landscape boards up to 2:1 and decays outside.
func aspectScore(aspect float64) float64 {
	switch {
	case aspect <= 0:
		return 0
	case aspect < 1:
		return aspect
	case aspect > 2:
		return 2 / aspect
	}
	return 1
}

func colorDistance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
