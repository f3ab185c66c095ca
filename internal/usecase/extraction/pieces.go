package extraction

import (
	"context"
	"image/color"
	"math"

	"bgscan/internal/domain/position"
	"bgscan/internal/domain/vision"
)

const (
	// patchRatio is the half-size of the sampled square relative to the
	// checker diameter; it stays well inside a checker.
	patchRatio = 0.3

	whiteMinValue      = 0.7
	whiteMaxSaturation = 0.25
	redMinSaturation   = 0.45
	redMinValue        = 0.25
	redHueTolerance    = 20.0
)

// DetectPieces scans each point's checker strip from the board edge towards
// the middle, one checker-sized slot at a time, and stops at the first empty
// slot. Every detection is then assigned to the nearest point anchor.
func (p *Pipeline) DetectPieces(ctx context.Context, f *Frame, locs []vision.Point2D) ([]vision.PieceDetection, error) {
	l, err := layoutFrom(locs)
	if err != nil {
		return nil, err
	}

	diameter := l.colW
	slots := int(l.height() / 2 / diameter)
	half := diameter * patchRatio

	var out []vision.PieceDetection
	for n := 1; n <= position.NumPoints; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := locs[n-1].X
		edge, dir := l.bottom, -1.0
		if n > position.NumPoints/2 {
			edge, dir = l.top, 1.0
		}

		for k := 0; k < slots; k++ {
			center := vision.Point2D{X: x, Y: edge + dir*diameter*(float64(k)+0.5)}
			c, conf := p.samplePatch(f, center, half)
			if c == "" {
				break
			}
			out = append(out, vision.PieceDetection{
				Position:    center,
				Color:       c,
				Confidence:  conf,
				PointNumber: nearestPoint(center, locs),
			})
		}
	}
	return out, nil
}

// samplePatch classifies a square patch by majority vote of its pixels.
// The confidence is the share of pixels agreeing with the majority.
func (p *Pipeline) samplePatch(f *Frame, c vision.Point2D, half float64) (position.Color, float64) {
	b := f.Image.Bounds()
	x0 := max(b.Min.X, int(math.Round(c.X-half)))
	x1 := min(b.Max.X, int(math.Round(c.X+half)))
	y0 := max(b.Min.Y, int(math.Round(c.Y-half)))
	y1 := min(b.Max.Y, int(math.Round(c.Y+half)))

	var white, red, total int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			switch classifyPixel(f.Image.RGBAAt(x, y)) {
			case position.White:
				white++
			case position.Red:
				red++
			}
			total++
		}
	}
	if total == 0 {
		return "", 0
	}

	winner, votes := position.White, white
	if red > white {
		winner, votes = position.Red, red
	}
	frac := float64(votes) / float64(total)
	if frac < p.cfg.MinPieceFraction {
		return "", 0
	}
	return winner, frac
}

func classifyPixel(c color.RGBA) position.Color {
	h, s, v := hsv(c)
	switch {
	case v >= whiteMinValue && s <= whiteMaxSaturation:
		return position.White
	case s >= redMinSaturation && v >= redMinValue && (h <= redHueTolerance || h >= 360-redHueTolerance):
		return position.Red
	}
	return ""
}

// hsv returns hue in degrees and saturation, value in [0,1].
func hsv(c color.RGBA) (float64, float64, float64) {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	d := hi - lo

	if hi == 0 {
		return 0, 0, 0
	}
	s := d / hi
	if d == 0 {
		return 0, s, hi
	}

	var h float64
	switch hi {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, hi
}

func nearestPoint(c vision.Point2D, locs []vision.Point2D) int {
	best, bestDist := 0, math.Inf(1)
	for i, l := range locs {
		if d := c.Dist(l); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best + 1
}
