package vision

import (
	"math"

	"bgscan/internal/domain/position"
)

type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point2D) Dist(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Corners returns the four corners clockwise from top-left.
func (r Rect) Corners() []Point2D {
	return []Point2D{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

type BoardDetection struct {
	Corners    []Point2D `json:"corners"`
	Confidence float64   `json:"confidence"`
	BoardRect  Rect      `json:"boardRect"`
	IsValid    bool      `json:"isValid"`
}

type PieceDetection struct {
	Position    Point2D        `json:"position"`
	Color       position.Color `json:"color"`
	Confidence  float64        `json:"confidence"`
	PointNumber int            `json:"pointNumber"`
}
