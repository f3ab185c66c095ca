// Package evaluation scores board positions. A native evaluator is preferred
// when one is configured and answers its probe; the deterministic heuristic
// covers every other case.
package evaluation

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bgscan/internal/codec"
	"bgscan/internal/domain/analysis"
	"bgscan/internal/domain/position"
)

// Evaluator is a native or learned position evaluator reached through the
// engine input encoding.
type Evaluator interface {
	Init(ctx context.Context, modelRef string) bool
	Evaluate(ctx context.Context, encoded string) (analysis.PositionAnalysis, error)
}

// DefaultProbeTimeout bounds the native Init call.
const DefaultProbeTimeout = 30 * time.Second

type Engine struct {
	native        Evaluator
	modelRef      string
	nativeTimeout time.Duration
	probeTimeout  time.Duration
	nativeLimit   float64
	weights       Weights
	strict        bool
	log           *zap.SugaredLogger

	probeOnce sync.Once
	probed    chan struct{}
	available bool
}

type Option func(*Engine)

func WithNative(ev Evaluator, modelRef string) Option {
	return func(e *Engine) {
		e.native = ev
		e.modelRef = modelRef
	}
}

func WithNativeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.nativeTimeout = d
	}
}

// WithProbeTimeout bounds the native Init call. A probe that runs out of
// time leaves the engine on the heuristic.
func WithProbeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.probeTimeout = d
	}
}

// WithNativeEvalLimit rejects native analyses whose evaluation is outside
// [-limit, limit]. Zero accepts any finite evaluation.
func WithNativeEvalLimit(limit float64) Option {
	return func(e *Engine) {
		e.nativeLimit = limit
	}
}

func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithStrictValidation makes Evaluate reject positions that break the
// 15 checkers per side rule. Structure is always checked.
func WithStrictValidation(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

func New(log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		weights:      DefaultWeights(),
		probeTimeout: DefaultProbeTimeout,
		log:          log,
		probed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init starts the native probe on first use and waits for its answer or for
// ctx. The probe runs detached from ctx and is bounded by the probe timeout,
// so a cancelled caller neither blocks others nor decides availability.
func (e *Engine) Init(ctx context.Context) bool {
	e.probeOnce.Do(func() {
		if e.native == nil {
			e.log.Info("no native evaluator configured, using heuristic")
			close(e.probed)
			return
		}
		go e.runProbe(context.WithoutCancel(ctx))
	})

	select {
	case <-e.probed:
		return e.available
	case <-ctx.Done():
		return false
	}
}

type probeAnswer struct {
	ok  bool
	err error
}

func (e *Engine) runProbe(ctx context.Context) {
	defer close(e.probed)

	if e.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()
	}

	answer := make(chan probeAnswer, 1)
	go func() {
		ok, err := safeInit(ctx, e.native, e.modelRef)
		answer <- probeAnswer{ok: ok, err: err}
	}()

	select {
	case a := <-answer:
		if a.err != nil {
			e.log.Warnw("native evaluator init failed, using heuristic", "error", a.err)
			return
		}
		e.available = a.ok
		e.log.Infow("native evaluator probed", "available", a.ok, "model", e.modelRef)
	case <-ctx.Done():
		e.log.Warnw("native evaluator did not answer its probe, using heuristic", "timeout", e.probeTimeout)
	}
}

func (e *Engine) NativeAvailable(ctx context.Context) bool {
	return e.Init(ctx)
}

func (e *Engine) Weights() Weights {
	return e.weights
}

// Evaluate returns a fresh analysis for p. Native failures are logged and
// answered by the heuristic; only a malformed position is an error. The ID
// is always recomputed from the counts.
func (e *Engine) Evaluate(ctx context.Context, p position.BoardPosition) (analysis.PositionAnalysis, error) {
	if err := e.check(p); err != nil {
		return analysis.PositionAnalysis{}, err
	}
	p = codec.Identify(p)

	if e.Init(ctx) {
		res, err := e.evaluateNative(ctx, p)
		if err == nil {
			return res, nil
		}
		e.log.Warnw("native evaluation failed, falling back to heuristic", "position_id", p.ID, "error", err)
	}

	return Heuristic(p, e.weights), nil
}

// EvaluateBatch evaluates positions concurrently; result i belongs to
// positions[i].
func (e *Engine) EvaluateBatch(ctx context.Context, positions []position.BoardPosition) ([]analysis.PositionAnalysis, error) {
	out := make([]analysis.PositionAnalysis, len(positions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range positions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Evaluate(ctx, positions[i])
			if err != nil {
				return fmt.Errorf("position %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) check(p position.BoardPosition) error {
	if e.strict {
		return p.Validate()
	}
	return p.ValidateStructure()
}

func (e *Engine) evaluateNative(ctx context.Context, p position.BoardPosition) (res analysis.PositionAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native evaluator panic: %v", r)
		}
	}()

	if e.nativeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.nativeTimeout)
		defer cancel()
	}

	res, err = e.native.Evaluate(ctx, codec.EngineInput(p))
	if err != nil {
		return analysis.PositionAnalysis{}, err
	}
	if err = res.Validate(e.nativeLimit); err != nil {
		return analysis.PositionAnalysis{}, fmt.Errorf("native evaluator returned a bad analysis: %w", err)
	}

	res.PositionID = p.ID
	res.BestMoves = analysis.SortMoves(res.BestMoves)
	return res, nil
}

func safeInit(ctx context.Context, ev Evaluator, modelRef string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native evaluator init panic: %v", r)
		}
	}()
	return ev.Init(ctx, modelRef), nil
}
