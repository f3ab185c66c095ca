// Package extraction turns a board photograph into a BoardPosition in five
// ordered stages: preprocess, detect board, segment points, detect pieces
// and extract position.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bgscan/internal/bootstrap"
	"bgscan/internal/domain/position"
	"bgscan/internal/domain/vision"
	errs "bgscan/internal/errors"
)

const (
	boardWeight  = 0.4
	piecesWeight = 0.6
)

type Stage string

const (
	StagePreprocess      Stage = "preprocess"
	StageDetectBoard     Stage = "detect_board"
	StageSegmentPoints   Stage = "segment_points"
	StageDetectPieces    Stage = "detect_pieces"
	StageExtractPosition Stage = "extract_position"
)

type Config struct {
	MaxImageSide       int
	MaxPixels          int
	MinBoardConfidence float64
	MinBoardAreaRatio  float64
	MinPieceFraction   float64
}

func ConfigFrom(c bootstrap.PipelineConfig) Config {
	return Config{
		MaxImageSide:       c.MaxImageSide,
		MaxPixels:          c.MaxPixels,
		MinBoardConfidence: c.MinBoardConfidence,
		MinBoardAreaRatio:  c.MinBoardAreaRatio,
		MinPieceFraction:   c.MinPieceFraction,
	}
}

func DefaultConfig() Config {
	return ConfigFrom(bootstrap.Defaults().Pipeline)
}

type Pipeline struct {
	cfg Config
	log *zap.SugaredLogger
	now func() time.Time
}

func New(cfg Config, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		log: log,
		now: time.Now,
	}
}

type Result struct {
	Position   position.BoardPosition  `json:"position"`
	Detection  vision.BoardDetection   `json:"detection"`
	Pieces     []vision.PieceDetection `json:"pieces"`
	Confidence float64                 `json:"confidence"`
	Warnings   []error                 `json:"-"`
}

// LowConfidence reports whether the position broke a board rule.
func (r Result) LowConfidence() bool {
	for _, w := range r.Warnings {
		if errors.Is(w, errs.ErrLowConfidencePosition) {
			return true
		}
	}
	return false
}

func (r Result) WarningMessages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.Error())
	}
	return out
}

// StageHook is called after each completed stage.
type StageHook func(stage Stage, elapsed time.Duration)

type ProcessOption func(*processOptions)

type processOptions struct {
	hook StageHook
}

func WithStageHook(h StageHook) ProcessOption {
	return func(o *processOptions) {
		o.hook = h
	}
}

// Process runs all stages in order. ErrImageRead and ErrBoardNotFound abort
// the run; everything found later degrades to warnings on the Result. No
// partial Result is returned with an error.
func (p *Pipeline) Process(ctx context.Context, src Source, opts ...ProcessOption) (Result, error) {
	var o processOptions
	for _, opt := range opts {
		opt(&o)
	}
	done := func(s Stage, started time.Time) {
		elapsed := time.Since(started)
		p.log.Debugw("pipeline stage finished", "stage", s, "elapsed", elapsed)
		if o.hook != nil {
			o.hook(s, elapsed)
		}
	}

	started := time.Now()
	frame, err := p.Preprocess(ctx, src)
	if err != nil {
		return Result{}, err
	}
	done(StagePreprocess, started)

	started = time.Now()
	det, err := p.DetectBoard(ctx, frame)
	if err != nil {
		return Result{}, err
	}
	if !det.IsValid {
		return Result{}, fmt.Errorf("%w: %s", errs.ErrBoardNotFound, frame.Name)
	}
	done(StageDetectBoard, started)

	var warnings []error
	if det.Confidence < p.cfg.MinBoardConfidence {
		warnings = append(warnings, fmt.Errorf("%w: %.2f < %.2f", errs.ErrLowBoardConfidence, det.Confidence, p.cfg.MinBoardConfidence))
	}

	started = time.Now()
	locs, err := p.SegmentPoints(ctx, frame, det)
	if err != nil {
		return Result{}, err
	}
	done(StageSegmentPoints, started)

	started = time.Now()
	pieces, err := p.DetectPieces(ctx, frame, locs)
	if err != nil {
		return Result{}, err
	}
	done(StageDetectPieces, started)

	started = time.Now()
	pos, posWarnings, err := p.ExtractPosition(ctx, pieces)
	if err != nil {
		return Result{}, err
	}
	done(StageExtractPosition, started)

	res := Result{
		Position:   pos,
		Detection:  det,
		Pieces:     pieces,
		Confidence: OverallConfidence(det.Confidence, pieces),
		Warnings:   append(warnings, posWarnings...),
	}
	p.log.Infow("position extracted",
		"source", frame.Name,
		"position_id", pos.ID,
		"pieces", len(pieces),
		"confidence", res.Confidence,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// OverallConfidence weights board geometry 0.4 and the mean piece
// confidence 0.6; with no pieces only the board term remains.
func OverallConfidence(board float64, pieces []vision.PieceDetection) float64 {
	mean := 0.0
	if len(pieces) > 0 {
		for _, d := range pieces {
			mean += d.Confidence
		}
		mean /= float64(len(pieces))
	}
	return clamp01(boardWeight*clamp01(board) + piecesWeight*clamp01(mean))
}
