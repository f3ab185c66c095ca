package extraction

import (
	"context"
	"fmt"

	"bgscan/internal/codec"
	"bgscan/internal/domain/position"
	"bgscan/internal/domain/vision"
	errs "bgscan/internal/errors"
)

// ExtractPosition groups detections by point, keeping detection order inside
// each point. Occlusion and noisy detections are legitimate input: rule
// violations come back as ErrLowConfidencePosition warnings next to the
// best-effort position, never as an error.
func (p *Pipeline) ExtractPosition(ctx context.Context, pieces []vision.PieceDetection) (position.BoardPosition, []error, error) {
	if err := ctx.Err(); err != nil {
		return position.BoardPosition{}, nil, err
	}

	var warnings []error
	points := make([]position.Point, position.NumPoints)
	for i := range points {
		points[i].Number = i + 1
	}
	for _, d := range pieces {
		if d.PointNumber < 1 || d.PointNumber > position.NumPoints || !d.Color.Valid() {
			warnings = append(warnings, fmt.Errorf("%w: dropped detection at (%.0f, %.0f) on point %d",
				errs.ErrLowConfidencePosition, d.Position.X, d.Position.Y, d.PointNumber))
			continue
		}
		pt := &points[d.PointNumber-1]
		pt.Pieces = append(pt.Pieces, position.NewPiece(d.Color))
	}
	for i := range points {
		if points[i].Pieces == nil {
			points[i].Pieces = []position.Piece{}
		}
	}

	pos := codec.Identify(position.BoardPosition{
		Points:    points,
		ToMove:    position.White,
		CreatedAt: p.now(),
	})

	for _, n := range pos.MixedPoints() {
		warnings = append(warnings, fmt.Errorf("%w: point %d holds both colors", errs.ErrLowConfidencePosition, n))
	}
	for _, c := range position.Colors {
		if total := pos.Total(c); total != position.CheckersPerSide {
			warnings = append(warnings, fmt.Errorf("%w: %s has %d checkers, want %d",
				errs.ErrLowConfidencePosition, c, total, position.CheckersPerSide))
		}
	}
	return pos, warnings, nil
}
