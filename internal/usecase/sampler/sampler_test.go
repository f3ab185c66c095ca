package sampler

import (
	"math/rand"
	"testing"

	"bgscan/internal/codec"
	"bgscan/internal/domain/position"
)

func TestSampleRespectsBoardRules(t *testing.T) {
	s := New(DefaultConfig(), rand.New(rand.NewSource(1)))

	var sawBar, sawBearOff bool
	seenSide := map[position.Color]bool{}
	for i := 0; i < 2000; i++ {
		p := s.Sample()
		if err := p.Validate(); err != nil {
			t.Fatalf("sample %d invalid: %v", i, err)
		}
		if mixed := p.MixedPoints(); len(mixed) != 0 {
			t.Fatalf("sample %d mixes colors on points %v", i, mixed)
		}
		for _, pt := range p.Points {
			for _, side := range position.Colors {
				if pt.Count(side) > DefaultConfig().PointCapacity {
					t.Fatalf("sample %d: point %d holds %d %s checkers", i, pt.Number, pt.Count(side), side)
				}
			}
		}
		if p.ID != codec.PositionID(p) {
			t.Fatalf("sample %d: ID %q not derived from counts", i, p.ID)
		}
		sawBar = sawBar || p.Bar.White+p.Bar.Red > 0
		sawBearOff = sawBearOff || p.BearOff.White+p.BearOff.Red > 0
		seenSide[p.ToMove] = true
	}
	if !sawBar || !sawBearOff {
		t.Errorf("bar/bear-off never used: bar=%v bearOff=%v", sawBar, sawBearOff)
	}
	if !seenSide[position.White] || !seenSide[position.Red] {
		t.Errorf("side to move not random: %v", seenSide)
	}
}

func TestSampleIsReproducible(t *testing.T) {
	a := New(DefaultConfig(), rand.New(rand.NewSource(42))).SampleN(20)
	b := New(DefaultConfig(), rand.New(rand.NewSource(42))).SampleN(20)
	for i := range a {
		if codec.EngineInput(a[i]) != codec.EngineInput(b[i]) {
			t.Fatalf("sample %d differs with the same seed", i)
		}
	}
}

func TestSampleBorrowsPointsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinPoints, cfg.MaxPoints = 1, 1
	cfg.PointCapacity = 2
	cfg.MaxOffBoard = 0
	s := New(cfg, rand.New(rand.NewSource(7)))

	for i := 0; i < 200; i++ {
		p := s.Sample()
		if err := p.Validate(); err != nil {
			t.Fatalf("sample %d invalid: %v", i, err)
		}
		for _, side := range position.Colors {
			// 15 checkers at 2 per point need 8 points; the pool has room
			if got := p.OnPoints(side); got != position.CheckersPerSide {
				t.Fatalf("sample %d: %s has %d checkers on points, want 15", i, side, got)
			}
		}
		if len(p.MixedPoints()) != 0 {
			t.Fatalf("sample %d borrowed an occupied point", i)
		}
	}
}

func TestSampleOverflowsToBarAndBearOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinPoints, cfg.MaxPoints = 12, 12
	cfg.PointCapacity = 1
	cfg.MaxOffBoard = 0
	s := New(cfg, rand.New(rand.NewSource(3)))

	p := s.Sample()
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid: %v", err)
	}
	for _, side := range position.Colors {
		if got := p.OnPoints(side); got != 12 {
			t.Errorf("%s on points = %d, want 12 (pool exhausted)", side, got)
		}
		if got := p.Bar.Of(side) + p.BearOff.Of(side); got != 3 {
			t.Errorf("%s off the points = %d, want 3", side, got)
		}
	}
}
