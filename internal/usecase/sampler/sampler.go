// Package sampler generates random positions that respect the board rules,
// for demos and tests that do not start from a photograph.
package sampler

import (
	"math/rand"
	"sync"
	"time"

	"bgscan/internal/codec"
	"bgscan/internal/domain/position"
)

type Config struct {
	MinPoints     int
	MaxPoints     int
	PointCapacity int
	// MaxOffBoard caps how many checkers per side are held back from the
	// points before distribution.
	MaxOffBoard int
	MaxBar      int
}

func DefaultConfig() Config {
	return Config{
		MinPoints:     3,
		MaxPoints:     8,
		PointCapacity: 5,
		MaxOffBoard:   3,
		MaxBar:        2,
	}
}

type Sampler struct {
	cfg Config
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(cfg Config, rnd *rand.Rand) *Sampler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{
		cfg: cfg,
		now: time.Now,
		rnd: rnd,
	}
}

// Sample returns a legal position: the two sides use disjoint points and
// each side has exactly 15 checkers across points, bar and bear-off.
func (s *Sampler) Sample() position.BoardPosition {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.rnd.Perm(position.NumPoints)
	for i := range pool {
		pool[i]++
	}

	var c position.Counts
	chosen := make(map[position.Color][]int, 2)
	for _, side := range position.Colors {
		n := s.between(s.cfg.MinPoints, s.cfg.MaxPoints)
		n = min(n, len(pool))
		chosen[side], pool = pool[:n], pool[n:]
	}

	for _, side := range position.Colors {
		target := position.CheckersPerSide - s.rnd.Intn(s.cfg.MaxOffBoard+1)
		var placed int
		placed, pool = s.distribute(&c, side, chosen[side], pool, target)

		rest := position.CheckersPerSide - placed
		bar := s.rnd.Intn(min(rest, s.cfg.MaxBar) + 1)
		c.Bar = c.Bar.With(side, bar)
		c.BearOff = c.BearOff.With(side, rest-bar)
	}

	c.ToMove = position.Colors[s.rnd.Intn(len(position.Colors))]
	return codec.Identify(position.New(c, s.now()))
}

func (s *Sampler) SampleN(n int) []position.BoardPosition {
	out := make([]position.BoardPosition, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Sample())
	}
	return out
}

// distribute places up to target checkers round-robin over points, one per
// point per round in a reshuffled order, respecting PointCapacity. When every
// point is full a new point is borrowed from the unused pool. It returns the
// number placed and the remaining pool.
func (s *Sampler) distribute(c *position.Counts, side position.Color, points, pool []int, target int) (int, []int) {
	points = append([]int(nil), points...)
	placed := 0
	for placed < target {
		progress := false
		s.rnd.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })
		for _, pt := range points {
			if placed == target {
				break
			}
			pc := &c.Points[pt-1]
			if pc.Of(side) >= s.cfg.PointCapacity {
				continue
			}
			if side == position.White {
				pc.White++
			} else {
				pc.Red++
			}
			placed++
			progress = true
		}
		if progress {
			continue
		}
		if len(pool) == 0 {
			break
		}
		points = append(points, pool[0])
		pool = pool[1:]
	}
	return placed, pool
}

func (s *Sampler) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rnd.Intn(hi-lo+1)
}
