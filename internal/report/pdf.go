// Package report renders a saved scan as a printable PDF.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	hist "bgscan/internal/domain/history"
	"bgscan/internal/domain/position"
)

const (
	lineHeight = 6.0
	cellWidth  = 22.0
)

// Render writes a one-page report for item: position summary, per-point
// checker table and, when present, the analysis with its candidate moves.
func Render(w io.Writer, item hist.Item) error {
	p := item.Position

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Backgammon position "+p.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Backgammon position")
	pdf.Ln(12)

	pdf.SetFont("Courier", "", 10)
	line := func(label, value string) {
		pdf.CellFormat(45, lineHeight, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, value, "", 1, "L", false, 0, "")
	}
	line("Position ID", p.ID)
	line("Saved at", item.SavedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	line("Side to move", string(p.ToMove))
	if p.Dice != nil {
		line("Dice", fmt.Sprintf("%d-%d", p.Dice[0], p.Dice[1]))
	}
	line("Pip count", fmt.Sprintf("white %d, red %d", p.PipCount(position.White), p.PipCount(position.Red)))
	line("Bar", fmt.Sprintf("white %d, red %d", p.Bar.White, p.Bar.Red))
	line("Borne off", fmt.Sprintf("white %d, red %d", p.BearOff.White, p.BearOff.Red))
	pdf.Ln(4)

	pointTable(pdf, p)

	if a := item.Analysis; a != nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Analysis ("+string(p.ToMove)+" to move)")
		pdf.Ln(9)
		pdf.SetFont("Courier", "", 10)
		line("Win", fmt.Sprintf("%.1f%%", a.WinningChances.Win))
		line("Gammon", fmt.Sprintf("%.1f%%", a.WinningChances.Gammon))
		line("Backgammon", fmt.Sprintf("%.1f%%", a.WinningChances.Backgammon))
		line("Evaluation", fmt.Sprintf("%+.3f", a.Evaluation))
		line("Confidence", fmt.Sprintf("%.2f", a.Confidence))

		if len(a.BestMoves) > 0 {
			pdf.Ln(2)
			widths := []float64{cellWidth, 3 * cellWidth, cellWidth, cellWidth}
			header(pdf, widths, "#", "Move", "Equity", "Win %")
			for i, m := range a.BestMoves {
				row(pdf, widths, strconv.Itoa(i+1), m.Notation, fmt.Sprintf("%+.3f", m.Evaluation), fmt.Sprintf("%.1f", m.WinRate))
			}
		}
	}

	return pdf.Output(w)
}

func pointTable(pdf *gofpdf.Fpdf, p position.BoardPosition) {
	widths := []float64{cellWidth, cellWidth, cellWidth}
	header(pdf, widths, "Point", "White", "Red")
	for i, pc := range p.Counts().Points {
		if pc.White == 0 && pc.Red == 0 {
			continue
		}
		row(pdf, widths, strconv.Itoa(i+1), strconv.Itoa(pc.White), strconv.Itoa(pc.Red))
	}
}

func header(pdf *gofpdf.Fpdf, widths []float64, cols ...string) {
	pdf.SetFont("Courier", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		pdf.CellFormat(widths[i], lineHeight, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Courier", "", 10)
}

func row(pdf *gofpdf.Fpdf, widths []float64, cols ...string) {
	for i, c := range cols {
		pdf.CellFormat(widths[i], lineHeight, c, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
}
