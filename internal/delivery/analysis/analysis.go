package analysis

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"bgscan/internal/bootstrap"
	"bgscan/internal/codec"
	domain "bgscan/internal/domain/analysis"
	hist "bgscan/internal/domain/history"
	"bgscan/internal/domain/position"
	"bgscan/internal/domain/vision"
	errs "bgscan/internal/errors"
	"bgscan/internal/httpresponse"
	"bgscan/internal/usecase/extraction"
	"bgscan/internal/usecase/sampler"
	"bgscan/internal/utils"
)

const maxSampleCount = 50

type PositionScanner interface {
	Process(ctx context.Context, src extraction.Source, opts ...extraction.ProcessOption) (extraction.Result, error)
}

type PositionEvaluator interface {
	Evaluate(ctx context.Context, p position.BoardPosition) (domain.PositionAnalysis, error)
	EvaluateBatch(ctx context.Context, ps []position.BoardPosition) ([]domain.PositionAnalysis, error)
}

type HistoryRecorder interface {
	Add(ctx context.Context, p position.BoardPosition, a *domain.PositionAnalysis, imageURI string) (hist.Item, error)
}

type AnalysisCache interface {
	Get(ctx context.Context, p position.BoardPosition) (domain.PositionAnalysis, bool)
	Put(ctx context.Context, p position.BoardPosition, a domain.PositionAnalysis)
}

type ScanResponse struct {
	Position      position.BoardPosition   `json:"position"`
	Detection     vision.BoardDetection    `json:"detection"`
	Pieces        []vision.PieceDetection  `json:"pieces"`
	Confidence    float64                  `json:"confidence"`
	LowConfidence bool                     `json:"lowConfidence"`
	Warnings      []string                 `json:"warnings"`
	Analysis      *domain.PositionAnalysis `json:"analysis,omitempty"`
	Saved         bool                     `json:"saved"`
}

type SampleResponse struct {
	Position position.BoardPosition   `json:"position"`
	Analysis *domain.PositionAnalysis `json:"analysis,omitempty"`
}

type AnalysisHandler struct {
	cfg     bootstrap.Config
	log     *zap.SugaredLogger
	scanner PositionScanner
	engine  PositionEvaluator
	sampler *sampler.Sampler
	history HistoryRecorder
	cache   AnalysisCache
}

// NewAnalysisHandler wires the scan, evaluate and sample endpoints. history
// and cache may be nil.
func NewAnalysisHandler(cfg bootstrap.Config, log *zap.SugaredLogger, scanner PositionScanner, engine PositionEvaluator, smp *sampler.Sampler, history HistoryRecorder, cache AnalysisCache) *AnalysisHandler {
	return &AnalysisHandler{
		cfg:     cfg,
		log:     log,
		scanner: scanner,
		engine:  engine,
		sampler: smp,
		history: history,
		cache:   cache,
	}
}

// HandleScan accepts a multipart upload in the "image" field. Pass save=false
// to keep the scan out of the history.
func (a *AnalysisHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		a.log.Warnw("failed to parse multipart form", "error", err)
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "expected multipart form with an image field")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "image field is missing")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.log.Error("Failed to read upload:", err)
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "failed to read image")
		return
	}

	save := r.URL.Query().Get("save") != "false"
	resp, err := a.scan(r.Context(), extraction.BytesSource{Label: header.Filename, Data: data}, save)
	if err != nil {
		a.log.Errorw("scan failed", "file", header.Filename, "error", err)
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

func (a *AnalysisHandler) scan(ctx context.Context, src extraction.Source, save bool, opts ...extraction.ProcessOption) (ScanResponse, error) {
	res, err := a.scanner.Process(ctx, src, opts...)
	if err != nil {
		return ScanResponse{}, err
	}

	resp := ScanResponse{
		Position:      res.Position,
		Detection:     res.Detection,
		Pieces:        res.Pieces,
		Confidence:    res.Confidence,
		LowConfidence: res.LowConfidence(),
		Warnings:      res.WarningMessages(),
	}
	if resp.Pieces == nil {
		resp.Pieces = []vision.PieceDetection{}
	}

	an, err := a.evaluate(ctx, res.Position)
	switch {
	case err == nil:
		resp.Analysis = &an
	case errors.Is(err, errs.ErrInvalidPosition):
		a.log.Warnw("отсканированная позиция не прошла проверку, анализ пропущен", "position_id", res.Position.ID, "error", err)
		resp.Warnings = append(resp.Warnings, err.Error())
	default:
		return ScanResponse{}, err
	}

	if save && a.history != nil {
		if _, err = a.history.Add(ctx, res.Position, resp.Analysis, "upload://"+src.Name()); err != nil {
			a.log.Warnw("failed to save scan to history", "position_id", res.Position.ID, "error", err)
		} else {
			resp.Saved = true
		}
	}
	return resp, nil
}

// evaluate answers from the cache when it can and fills it otherwise.
func (a *AnalysisHandler) evaluate(ctx context.Context, p position.BoardPosition) (domain.PositionAnalysis, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(ctx, p); ok {
			return cached, nil
		}
	}
	res, err := a.engine.Evaluate(ctx, p)
	if err != nil {
		return domain.PositionAnalysis{}, err
	}
	if a.cache != nil {
		a.cache.Put(ctx, p, res)
	}
	return res, nil
}

// HandleEvaluate scores a BoardPosition posted as JSON. The ID is always
// recomputed from the checkers.
func (a *AnalysisHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var p position.BoardPosition
	if err := utils.DecodeJSONRequest(r, &p); err != nil {
		a.log.Error("JSON decode error:", err)
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc+": "+err.Error())
		return
	}
	if err := p.ValidateStructure(); err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	p = codec.Identify(p)

	res, err := a.evaluate(r.Context(), p)
	if err != nil {
		a.log.Errorw("evaluation failed", "position_id", p.ID, "error", err)
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, res)
}

// HandleSample returns count random legal positions (default 1, at most 50).
// evaluate=true adds an analysis to each; seed makes the draw reproducible.
func (a *AnalysisHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := 1
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSampleCount {
			httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(maxSampleCount))
			return
		}
		count = n
	}

	smp := a.sampler
	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
		smp = sampler.New(sampler.DefaultConfig(), rand.New(rand.NewSource(seed)))
	}

	positions := smp.SampleN(count)
	out := make([]SampleResponse, len(positions))
	for i, p := range positions {
		out[i].Position = p
	}

	if evaluate, _ := strconv.ParseBool(q.Get("evaluate")); evaluate {
		results, err := a.engine.EvaluateBatch(r.Context(), positions)
		if err != nil {
			a.log.Errorw("batch evaluation failed", "count", count, "error", err)
			httpresponse.WriteError(w, err)
			return
		}
		for i := range results {
			out[i].Analysis = &results[i]
		}
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, out)
}
