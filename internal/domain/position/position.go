// Package position holds the canonical backgammon board model.
//
// Red moves from point 24 towards point 1 and bears off from points 1-6.
// White moves from point 1 towards point 24 and bears off from points 19-24.
// A BoardPosition is a value: helpers that change it return a new value and
// never touch the receiver's slices.
package position

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	errs "bgscan/internal/errors"
)

const (
	NumPoints       = 24
	CheckersPerSide = 15
	BarPips         = 25

	// MaxCheckersPerSide bounds a noisy scan: extra detections are kept
	// and flagged, absurd counts are rejected.
	MaxCheckersPerSide = 2 * CheckersPerSide
)

type Color string

const (
	White Color = "white"
	Red   Color = "red"
)

var Colors = [2]Color{White, Red}

func (c Color) Valid() bool {
	return c == White || c == Red
}

func (c Color) Opponent() Color {
	if c == White {
		return Red
	}
	return White
}

type Piece struct {
	Color Color  `json:"color" bson:"color"`
	ID    string `json:"id" bson:"id"`
}

func NewPiece(c Color) Piece {
	return Piece{Color: c, ID: uuid.New().String()}
}

type Point struct {
	Number int     `json:"number" bson:"number"`
	Pieces []Piece `json:"pieces" bson:"pieces"`
}

func (p Point) Count(c Color) int {
	n := 0
	for _, piece := range p.Pieces {
		if piece.Color == c {
			n++
		}
	}
	return n
}

// Mixed reports whether the point holds checkers of both colors.
func (p Point) Mixed() bool {
	return p.Count(White) > 0 && p.Count(Red) > 0
}

type SideCounts struct {
	White int `json:"white" bson:"white"`
	Red   int `json:"red" bson:"red"`
}

func (s SideCounts) Of(c Color) int {
	if c == White {
		return s.White
	}
	return s.Red
}

func (s SideCounts) With(c Color, n int) SideCounts {
	if c == White {
		s.White = n
	} else {
		s.Red = n
	}
	return s
}

type Dice [2]int

func (d Dice) Valid() bool {
	return d[0] >= 1 && d[0] <= 6 && d[1] >= 1 && d[1] <= 6
}

type BoardPosition struct {
	ID        string     `json:"id" bson:"id"`
	Points    []Point    `json:"points" bson:"points"`
	Bar       SideCounts `json:"bar" bson:"bar"`
	BearOff   SideCounts `json:"bearOff" bson:"bear_off"`
	ToMove    Color      `json:"toMove" bson:"to_move"`
	Dice      *Dice      `json:"dice,omitempty" bson:"dice,omitempty"`
	CreatedAt time.Time  `json:"timestamp" bson:"timestamp"`
}

// Point returns the point with the given number. Lookup is by number, the
// order of Points is irrelevant.
func (p BoardPosition) Point(number int) (Point, bool) {
	for _, pt := range p.Points {
		if pt.Number == number {
			return pt, true
		}
	}
	return Point{}, false
}

func (p BoardPosition) Count(number int, c Color) int {
	pt, ok := p.Point(number)
	if !ok {
		return 0
	}
	return pt.Count(c)
}

func (p BoardPosition) OnPoints(c Color) int {
	n := 0
	for _, pt := range p.Points {
		n += pt.Count(c)
	}
	return n
}

// InPlay counts checkers not yet borne off.
func (p BoardPosition) InPlay(c Color) int {
	return p.OnPoints(c) + p.Bar.Of(c)
}

func (p BoardPosition) Total(c Color) int {
	return p.InPlay(c) + p.BearOff.Of(c)
}

// PipCount is the total distance the side still has to travel to bear off.
func (p BoardPosition) PipCount(c Color) int {
	pips := p.Bar.Of(c) * BarPips
	for _, pt := range p.Points {
		n := pt.Count(c)
		if n == 0 {
			continue
		}
		pips += n * distance(c, pt.Number)
	}
	return pips
}

func distance(c Color, point int) int {
	if c == Red {
		return point
	}
	return BarPips - point
}

// Blots counts points holding exactly one checker of the side.
func (p BoardPosition) Blots(c Color) int {
	n := 0
	for _, pt := range p.Points {
		if pt.Count(c) == 1 {
			n++
		}
	}
	return n
}

// MixedPoints lists the numbers of points holding both colors.
func (p BoardPosition) MixedPoints() []int {
	var mixed []int
	for _, pt := range p.Points {
		if pt.Mixed() {
			mixed = append(mixed, pt.Number)
		}
	}
	return mixed
}

// ValidateStructure checks the point layout, counters, side to move and dice.
func (p BoardPosition) ValidateStructure() error {
	if len(p.Points) != NumPoints {
		return fmt.Errorf("%w: expected %d points, got %d", errs.ErrInvalidPosition, NumPoints, len(p.Points))
	}
	var seen [NumPoints + 1]bool
	for _, pt := range p.Points {
		if pt.Number < 1 || pt.Number > NumPoints {
			return fmt.Errorf("%w: point number %d out of range", errs.ErrInvalidPosition, pt.Number)
		}
		if seen[pt.Number] {
			return fmt.Errorf("%w: duplicate point %d", errs.ErrInvalidPosition, pt.Number)
		}
		seen[pt.Number] = true
		for _, piece := range pt.Pieces {
			if !piece.Color.Valid() {
				return fmt.Errorf("%w: unknown color %q on point %d", errs.ErrInvalidPosition, piece.Color, pt.Number)
			}
		}
	}
	for _, c := range Colors {
		bar, off := p.Bar.Of(c), p.BearOff.Of(c)
		if bar < 0 || off < 0 {
			return fmt.Errorf("%w: negative bar or bear-off count", errs.ErrInvalidPosition)
		}
		if bar > CheckersPerSide || off > CheckersPerSide {
			return fmt.Errorf("%w: %s bar %d / bear-off %d above %d", errs.ErrInvalidPosition, c, bar, off, CheckersPerSide)
		}
		if total := p.Total(c); total > MaxCheckersPerSide {
			return fmt.Errorf("%w: %s has %d checkers, at most %d allowed", errs.ErrInvalidPosition, c, total, MaxCheckersPerSide)
		}
	}
	if !p.ToMove.Valid() {
		return fmt.Errorf("%w: unknown side to move %q", errs.ErrInvalidPosition, p.ToMove)
	}
	if p.Dice != nil && !p.Dice.Valid() {
		return fmt.Errorf("%w: dice %v out of range", errs.ErrInvalidPosition, *p.Dice)
	}
	return nil
}

// Validate runs ValidateStructure and the 15 checkers per side rule.
func (p BoardPosition) Validate() error {
	if err := p.ValidateStructure(); err != nil {
		return err
	}
	for _, c := range Colors {
		if total := p.Total(c); total != CheckersPerSide {
			return fmt.Errorf("%w: %s has %d checkers, want %d", errs.ErrInvalidPosition, c, total, CheckersPerSide)
		}
	}
	return nil
}

func (p BoardPosition) Clone() BoardPosition {
	out := p
	out.Points = make([]Point, len(p.Points))
	for i, pt := range p.Points {
		out.Points[i] = Point{Number: pt.Number, Pieces: append([]Piece(nil), pt.Pieces...)}
	}
	if p.Dice != nil {
		d := *p.Dice
		out.Dice = &d
	}
	return out
}

func (p BoardPosition) WithToMove(c Color) BoardPosition {
	out := p.Clone()
	out.ToMove = c
	return out
}

func (p BoardPosition) WithDice(d Dice) BoardPosition {
	out := p.Clone()
	out.Dice = &d
	return out
}
