package evaluation

import (
	"math"

	"bgscan/internal/bootstrap"
	"bgscan/internal/domain/analysis"
	"bgscan/internal/domain/position"
)

// HeuristicConfidence is reported by every fallback analysis.
const HeuristicConfidence = 0.5

// Weights are the tunable constants of the fallback heuristic. They are
// empirical defaults, not a fitted model.
type Weights struct {
	PipDivisor      float64
	BlotWeight      float64
	MaterialWeight  float64
	EvalLimit       float64
	WinBase         float64
	WinSlope        float64
	GammonBase      float64
	GammonSlope     float64
	BackgammonBase  float64
	BackgammonSlope float64
}

func DefaultWeights() Weights {
	return Weights{
		PipDivisor:      50,
		BlotWeight:      0.2,
		MaterialWeight:  0.3,
		EvalLimit:       3,
		WinBase:         50,
		WinSlope:        15,
		GammonBase:      12,
		GammonSlope:     4,
		BackgammonBase:  2,
		BackgammonSlope: 1,
	}
}

func WeightsFrom(c bootstrap.HeuristicConfig) Weights {
	return Weights{
		PipDivisor:      c.PipDivisor,
		BlotWeight:      c.BlotWeight,
		MaterialWeight:  c.MaterialWeight,
		EvalLimit:       c.EvalLimit,
		WinBase:         c.WinBase,
		WinSlope:        c.WinSlope,
		GammonBase:      c.GammonBase,
		GammonSlope:     c.GammonSlope,
		BackgammonBase:  c.BackgammonBase,
		BackgammonSlope: c.BackgammonSlope,
	}
}

// Heuristic scores p from white's side from pip, blot and material
// differences; a positive evaluation favours white whoever is on roll. It is
// a pure function of p and w and never suggests moves.
func Heuristic(p position.BoardPosition, w Weights) analysis.PositionAnalysis {
	var pip float64
	if w.PipDivisor != 0 {
		pip = float64(p.PipCount(position.Red)-p.PipCount(position.White)) / w.PipDivisor
	}
	blot := w.BlotWeight * float64(p.Blots(position.Red)-p.Blots(position.White))
	material := w.MaterialWeight * float64(p.InPlay(position.Red)-p.InPlay(position.White))

	eval := clamp(pip+blot+material, -w.EvalLimit, w.EvalLimit)
	return analysis.PositionAnalysis{
		PositionID:     p.ID,
		WinningChances: chances(eval, w),
		Evaluation:     eval,
		BestMoves:      []analysis.Move{},
		Confidence:     HeuristicConfidence,
	}
}

// chances maps an evaluation to percentages. The caps keep
// win >= gammon >= backgammon for any coefficients.
func chances(eval float64, w Weights) analysis.WinningChances {
	win := clamp(w.WinBase+w.WinSlope*eval, 0, 100)
	gammon := math.Min(clamp(w.GammonBase+w.GammonSlope*eval, 0, 100), win)
	backgammon := math.Min(clamp(w.BackgammonBase+w.BackgammonSlope*eval, 0, 100), gammon)
	return analysis.WinningChances{
		Win:        win,
		Gammon:     gammon,
		Backgammon: backgammon,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
