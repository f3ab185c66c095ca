package extraction

import (
	"context"
	"fmt"

	"bgscan/internal/domain/position"
	"bgscan/internal/domain/vision"
)

const (
	// boardColumns is 12 point columns plus two for the bar in the middle.
	boardColumns = 14
	halfColumns  = 6
	barColumns   = 2

	// anchors sit in the middle of each half-height checker strip
	bottomAnchor = 0.75
	topAnchor    = 0.25
)

// SegmentPoints maps the board rectangle to 24 point anchors; index i holds
// point i+1. Points 1-12 run right to left along the bottom edge and 13-24
// left to right along the top edge, skipping the bar. Only geometry is used.
func (p *Pipeline) SegmentPoints(ctx context.Context, _ *Frame, det vision.BoardDetection) ([]vision.Point2D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := det.BoardRect
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("board rect %+v has no area", r)
	}

	colW := r.Width / boardColumns
	locs := make([]vision.Point2D, position.NumPoints)
	for n := 1; n <= position.NumPoints; n++ {
		anchor := topAnchor
		if n <= position.NumPoints/2 {
			anchor = bottomAnchor
		}
		locs[n-1] = vision.Point2D{
			X: r.X + (float64(pointColumn(n))+0.5)*colW,
			Y: r.Y + anchor*r.Height,
		}
	}
	return locs, nil
}

// pointColumn returns the board column (0 = leftmost) of point n.
func pointColumn(n int) int {
	if n <= position.NumPoints/2 {
		return boardColumns - 1 - skipBar(n-1)
	}
	return skipBar(n - position.NumPoints/2 - 1)
}

func skipBar(i int) int {
	if i >= halfColumns {
		return i + barColumns
	}
	return i
}

// layout is the strip geometry recovered from the point anchors.
type layout struct {
	colW   float64
	top    float64
	bottom float64
}

func layoutFrom(locs []vision.Point2D) (layout, error) {
	if len(locs) != position.NumPoints {
		return layout{}, fmt.Errorf("expected %d point locations, got %d", position.NumPoints, len(locs))
	}
	// points 1 and 2 sit in neighbouring columns
	colW := locs[0].X - locs[1].X
	// points 1 and 24 share a column, one anchor per half
	span := locs[0].Y - locs[position.NumPoints-1].Y
	if colW <= 0 || span <= 0 {
		return layout{}, fmt.Errorf("point locations are not in board order")
	}
	height := span / (bottomAnchor - topAnchor)
	top := locs[position.NumPoints-1].Y - topAnchor*height
	return layout{colW: colW, top: top, bottom: top + height}, nil
}

func (l layout) height() float64 {
	return l.bottom - l.top
}
