package analysis

import (
	"fmt"
	"math"
	"sort"
)

type WinningChances struct {
	Win        float64 `json:"win" bson:"win"`
	Gammon     float64 `json:"gammon" bson:"gammon"`
	Backgammon float64 `json:"backgammon" bson:"backgammon"`
}

type Move struct {
	Notation   string  `json:"notation" bson:"notation"`
	From       int     `json:"from" bson:"from"`
	To         int     `json:"to" bson:"to"`
	Evaluation float64 `json:"evaluation" bson:"evaluation"`
	WinRate    float64 `json:"winRate" bson:"win_rate"`
}

// PositionAnalysis is reported from white's point of view: a positive
// evaluation and a win above 50 favour white.
type PositionAnalysis struct {
	PositionID     string         `json:"positionId" bson:"position_id"`
	WinningChances WinningChances `json:"winningChances" bson:"winning_chances"`
	Evaluation     float64        `json:"evaluation" bson:"evaluation"`
	BestMoves      []Move         `json:"bestMoves" bson:"best_moves"`
	Confidence     float64        `json:"confidence" bson:"confidence"`
}

// Validate checks percentage ranges, chance ordering and the confidence
// range. The evaluation bound is only checked when evalLimit is positive.
func (a PositionAnalysis) Validate(evalLimit float64) error {
	w := a.WinningChances
	for _, v := range []float64{w.Win, w.Gammon, w.Backgammon, a.Evaluation, a.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("analysis contains a non-finite value")
		}
	}
	if w.Win < 0 || w.Win > 100 || w.Gammon < 0 || w.Gammon > 100 || w.Backgammon < 0 || w.Backgammon > 100 {
		return fmt.Errorf("winning chances out of range: %+v", w)
	}
	if w.Win < w.Gammon || w.Gammon < w.Backgammon {
		return fmt.Errorf("winning chances out of order: %+v", w)
	}
	if evalLimit > 0 && math.Abs(a.Evaluation) > evalLimit {
		return fmt.Errorf("evaluation %.3f outside [-%.1f, %.1f]", a.Evaluation, evalLimit, evalLimit)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0, 1]", a.Confidence)
	}
	return nil
}

// SortMoves orders moves best first. Ties keep their original order.
func SortMoves(moves []Move) []Move {
	out := make([]Move, len(moves))
	copy(out, moves)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Evaluation > out[j].Evaluation
	})
	return out
}
