package codec

import (
	"strings"
	"testing"
	"time"

	"bgscan/internal/domain/position"
)

func TestPositionIDStartingPosition(t *testing.T) {
	p := position.New(position.Starting(), time.Now())
	if got := PositionID(p); got != "4HPwATDgc/ABMA" {
		t.Fatalf("PositionID = %q, want 4HPwATDgc/ABMA", got)
	}
}

func TestPositionIDIgnoresPieceTokensAndOrder(t *testing.T) {
	a := position.New(position.Starting(), time.Now())
	b := position.New(position.Starting(), time.Now().Add(time.Hour))

	// shuffle point order and pieces inside a point
	b.Points[0], b.Points[23] = b.Points[23], b.Points[0]
	pcs := b.Points[5].Pieces
	pcs[0], pcs[len(pcs)-1] = pcs[len(pcs)-1], pcs[0]

	if PositionID(a) != PositionID(b) {
		t.Error("PositionID depends on piece identity or point order")
	}
	if EngineInput(a) != EngineInput(b) {
		t.Error("EngineInput depends on piece identity or point order")
	}
}

func TestPositionIDIsTotal(t *testing.T) {
	var c position.Counts
	c.Points[3] = position.PointCount{White: 12, Red: 9}
	c.Points[4] = position.PointCount{White: 10}
	p := position.New(c, time.Now())
	id := PositionID(p)
	if len(id) <= 14 {
		t.Fatalf("over-full board should produce a longer ID, got %q", id)
	}
}

func TestEngineInputLayout(t *testing.T) {
	p := position.New(position.Starting(), time.Now())
	got := EngineInput(p)
	want := "BM|2,0;0,0;0,0;0,0;0,0;0,5;0,0;0,3;0,0;0,0;0,0;5,0;0,5;0,0;0,0;0,0;3,0;0,0;5,0;0,0;0,0;0,0;0,0;0,2|bar:0,0|bear:0,0|turn:white"
	if got != want {
		t.Fatalf("EngineInput =\n%s\nwant\n%s", got, want)
	}
}

func TestEngineInputDistinguishesFields(t *testing.T) {
	base := position.Starting()
	p := position.New(base, time.Now())

	withBar := base
	withBar.Points[0].White = 1
	withBar.Bar.White = 1

	withBearOff := base
	withBearOff.Points[0].White = 1
	withBearOff.BearOff.White = 1

	variants := []position.BoardPosition{
		p.WithToMove(position.Red),
		position.New(withBar, time.Now()),
		position.New(withBearOff, time.Now()),
	}
	seen := map[string]bool{EngineInput(p): true}
	for _, v := range variants {
		enc := EngineInput(v)
		if seen[enc] {
			t.Errorf("encoding collision: %s", enc)
		}
		seen[enc] = true
	}
}

// Scenario from the board layout used across the service docs.
func TestScenarioPosition(t *testing.T) {
	var c position.Counts
	c.Points[0] = position.PointCount{White: 2}
	c.Points[5] = position.PointCount{Red: 5}
	c.Points[7] = position.PointCount{Red: 3}
	c.Points[11] = position.PointCount{White: 5}
	c.Points[12] = position.PointCount{Red: 5}
	c.Points[16] = position.PointCount{White: 3}
	c.Points[18] = position.PointCount{White: 5}
	c.Points[23] = position.PointCount{Red: 2}
	p := Identify(position.New(c, time.Now()))

	if err := p.Validate(); err != nil {
		t.Fatalf("scenario should validate: %v", err)
	}
	if p.ID == "" || !strings.HasPrefix(EngineInput(p), "BM|") {
		t.Fatalf("unexpected encodings: id=%q input=%q", p.ID, EngineInput(p))
	}
	if EngineInput(p) != EngineInput(p.Clone()) || p.ID != PositionID(p) {
		t.Fatal("encoding is not deterministic")
	}
}
