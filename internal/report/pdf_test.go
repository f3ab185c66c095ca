package report

import (
	"bytes"
	"testing"
	"time"

	"bgscan/internal/codec"
	"bgscan/internal/domain/analysis"
	hist "bgscan/internal/domain/history"
	"bgscan/internal/domain/position"
)

func TestRender(t *testing.T) {
	p := codec.Identify(position.New(position.Starting(), time.Now())).WithDice(position.Dice{6, 5})
	items := []hist.Item{
		{Position: p, SavedAt: time.Now()},
		{
			Position: p,
			SavedAt:  time.Now(),
			Analysis: &analysis.PositionAnalysis{
				PositionID:     p.ID,
				WinningChances: analysis.WinningChances{Win: 53.2, Gammon: 15.1, Backgammon: 0.7},
				Evaluation:     0.07,
				BestMoves: []analysis.Move{
					{Notation: "24/13", From: 24, To: 13, Evaluation: 0.07, WinRate: 53.2},
					{Notation: "24/18 13/8", From: 24, To: 8, Evaluation: 0.01, WinRate: 51},
				},
				Confidence: 0.9,
			},
		},
	}
	for i, item := range items {
		var buf bytes.Buffer
		if err := Render(&buf, item); err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
			t.Errorf("item %d: output is not a PDF", i)
		}
	}
}
