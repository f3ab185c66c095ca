package position

import "time"

type PointCount struct {
	White int `json:"white"`
	Red   int `json:"red"`
}

func (c PointCount) Of(color Color) int {
	if color == White {
		return c.White
	}
	return c.Red
}

// Counts is the piece-identity free view of a position. Index i of Points
// describes point i+1.
type Counts struct {
	Points  [NumPoints]PointCount
	Bar     SideCounts
	BearOff SideCounts
	ToMove  Color
}

func (p BoardPosition) Counts() Counts {
	c := Counts{Bar: p.Bar, BearOff: p.BearOff, ToMove: p.ToMove}
	for _, pt := range p.Points {
		if pt.Number < 1 || pt.Number > NumPoints {
			continue
		}
		c.Points[pt.Number-1] = PointCount{
			White: c.Points[pt.Number-1].White + pt.Count(White),
			Red:   c.Points[pt.Number-1].Red + pt.Count(Red),
		}
	}
	return c
}

// New builds a position with fresh piece tokens from counts. The ID is left
// empty, see codec.Identify.
func New(c Counts, createdAt time.Time) BoardPosition {
	points := make([]Point, NumPoints)
	for i, pc := range c.Points {
		pieces := make([]Piece, 0, pc.White+pc.Red)
		for j := 0; j < pc.White; j++ {
			pieces = append(pieces, NewPiece(White))
		}
		for j := 0; j < pc.Red; j++ {
			pieces = append(pieces, NewPiece(Red))
		}
		points[i] = Point{Number: i + 1, Pieces: pieces}
	}
	toMove := c.ToMove
	if !toMove.Valid() {
		toMove = White
	}
	return BoardPosition{
		Points:    points,
		Bar:       c.Bar,
		BearOff:   c.BearOff,
		ToMove:    toMove,
		CreatedAt: createdAt,
	}
}

// WithCounts returns a new position with the given counts. Piece tokens are
// regenerated, the ID is cleared and the timestamp kept.
func (p BoardPosition) WithCounts(c Counts) BoardPosition {
	out := New(c, p.CreatedAt)
	if p.Dice != nil {
		d := *p.Dice
		out.Dice = &d
	}
	return out
}

// Starting is the standard opening layout.
func Starting() Counts {
	var c Counts
	c.Points[0] = PointCount{White: 2}
	c.Points[5] = PointCount{Red: 5}
	c.Points[7] = PointCount{Red: 3}
	c.Points[11] = PointCount{White: 5}
	c.Points[12] = PointCount{Red: 5}
	c.Points[16] = PointCount{White: 3}
	c.Points[18] = PointCount{White: 5}
	c.Points[23] = PointCount{Red: 2}
	c.ToMove = White
	return c
}
