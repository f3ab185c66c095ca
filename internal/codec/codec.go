// Package codec derives the identity string and the evaluator input string of
// a board position. Both encodings are one-way and depend only on checker
// counts, never on piece tokens or detection order.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"bgscan/internal/domain/position"
)

// positionIDBytes is the size of a GNU Backgammon position key: 15 checkers
// per side plus 25 separators per side fit in 80 bits.
const positionIDBytes = 10

// PositionID returns a GNU Backgammon style position ID with white written
// first. Every point of a side is written from that side's point of view as
// a run of ones (one per checker) closed by a zero, followed by the bar.
// Bear-off is implied by the missing checkers. Over-full boards coming from a
// noisy scan produce a longer ID instead of an error.
func PositionID(p position.BoardPosition) string {
	c := p.Counts()
	w := bitWriter{}
	for _, side := range position.Colors {
		for i := 0; i < position.NumPoints; i++ {
			w.unary(c.Points[pointFor(side, i)-1].Of(side))
		}
		w.unary(c.Bar.Of(side))
	}
	return base64.RawStdEncoding.EncodeToString(w.bytes(positionIDBytes))
}

// pointFor maps a side-relative index (0 is the side's own 1-point) to a
// board point number.
func pointFor(side position.Color, i int) int {
	if side == position.Red {
		return i + 1
	}
	return position.NumPoints - i
}

type bitWriter struct {
	buf []byte
	n   int
}

func (w *bitWriter) unary(count int) {
	for i := 0; i < count; i++ {
		w.bit(true)
	}
	w.bit(false)
}

func (w *bitWriter) bit(set bool) {
	if w.n%8 == 0 {
		w.buf = append(w.buf, 0)
	}
	if set {
		w.buf[w.n/8] |= 1 << (w.n % 8)
	}
	w.n++
}

func (w *bitWriter) bytes(minLen int) []byte {
	out := make([]byte, max(minLen, len(w.buf)))
	copy(out, w.buf)
	return out
}

// EngineInput is the evaluator wire layout:
//
//	BM|w,r;w,r;...|bar:w,r|bear:w,r|turn:<color>
//
// with 24 white,red pairs in point order. The layout is fixed so evaluator
// implementations can be swapped.
func EngineInput(p position.BoardPosition) string {
	c := p.Counts()
	pairs := make([]string, position.NumPoints)
	for i, pc := range c.Points {
		pairs[i] = fmt.Sprintf("%d,%d", pc.White, pc.Red)
	}
	return fmt.Sprintf("BM|%s|bar:%d,%d|bear:%d,%d|turn:%s",
		strings.Join(pairs, ";"),
		c.Bar.White, c.Bar.Red,
		c.BearOff.White, c.BearOff.Red,
		c.ToMove,
	)
}

// Identify returns p with its ID set to PositionID(p).
func Identify(p position.BoardPosition) position.BoardPosition {
	p.ID = PositionID(p)
	return p
}
