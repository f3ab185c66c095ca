package evaluation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"bgscan/internal/codec"
	"bgscan/internal/domain/analysis"
	"bgscan/internal/domain/position"
	errs "bgscan/internal/errors"
	"bgscan/internal/usecase/sampler"
)

type fakeNative struct {
	initOK   bool
	initCnt  atomic.Int32
	evalCnt  atomic.Int32
	result   analysis.PositionAnalysis
	err      error
	panicMsg string
	lastIn   atomic.Value
}

func (f *fakeNative) Init(context.Context, string) bool {
	f.initCnt.Add(1)
	return f.initOK
}

func (f *fakeNative) Evaluate(_ context.Context, encoded string) (analysis.PositionAnalysis, error) {
	f.evalCnt.Add(1)
	f.lastIn.Store(encoded)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result, f.err
}

func nopLog() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func starting() position.BoardPosition {
	return codec.Identify(position.New(position.Starting(), time.Unix(0, 0)))
}

func TestEvaluateWithoutNative(t *testing.T) {
	e := New(nopLog())
	res, err := e.Evaluate(context.Background(), starting())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.BestMoves) != 0 || res.BestMoves == nil {
		t.Errorf("heuristic must return an empty move list, got %#v", res.BestMoves)
	}
	if res.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", res.Confidence)
	}
	if res.Evaluation != 0 || res.WinningChances.Win != 50 {
		t.Errorf("symmetric start should be even: %+v", res)
	}
	if res.PositionID != "4HPwATDgc/ABMA" {
		t.Errorf("position ID = %q", res.PositionID)
	}
}

func TestHeuristicIsDeterministic(t *testing.T) {
	s := sampler.New(sampler.DefaultConfig(), rand.New(rand.NewSource(9)))
	for i := 0; i < 200; i++ {
		p := s.Sample()
		a := Heuristic(p, DefaultWeights())
		b := Heuristic(p.Clone(), DefaultWeights())
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("heuristic not deterministic:\n%+v\n%+v", a, b)
		}
	}
}

func TestHeuristicRanges(t *testing.T) {
	w := DefaultWeights()
	s := sampler.New(sampler.DefaultConfig(), rand.New(rand.NewSource(11)))
	for i := 0; i < 1000; i++ {
		res := Heuristic(s.Sample(), w)
		if err := res.Validate(w.EvalLimit); err != nil {
			t.Fatalf("sample %d: %v (%+v)", i, err, res)
		}
	}
	for e := -w.EvalLimit; e <= w.EvalLimit; e += 0.01 {
		c := chances(e, w)
		if c.Win < c.Gammon || c.Gammon < c.Backgammon || c.Backgammon < 0 || c.Win > 100 {
			t.Fatalf("chances out of order at %.2f: %+v", e, c)
		}
	}
}

func TestHeuristicChancesOrderedForAnyWeights(t *testing.T) {
	w := DefaultWeights()
	w.GammonBase, w.GammonSlope = 80, -30
	w.BackgammonBase = 90
	for e := -3.0; e <= 3; e += 0.25 {
		c := chances(e, w)
		if c.Win < c.Gammon || c.Gammon < c.Backgammon {
			t.Fatalf("caps failed at %.2f: %+v", e, c)
		}
	}
}

func TestHeuristicFavoursRaceLeader(t *testing.T) {
	c := position.Starting()
	// white brings the back checkers home
	c.Points[0].White = 0
	c.Points[18].White += 2
	p := codec.Identify(position.New(c, time.Now()))

	for _, side := range position.Colors {
		res := Heuristic(p.WithToMove(side), DefaultWeights())
		// white saves 36 pips: (167-131)/50
		if math.Abs(res.Evaluation-0.72) > 1e-9 {
			t.Errorf("%s to move: evaluation = %v, want 0.72 for white", side, res.Evaluation)
		}
	}
	if !reflect.DeepEqual(Heuristic(p, DefaultWeights()), Heuristic(p.WithToMove(position.Red), DefaultWeights())) {
		t.Error("side to move changed the heuristic")
	}

	flipped := position.Starting()
	flipped.Points[23].Red = 0
	flipped.Points[5].Red += 2
	q := codec.Identify(position.New(flipped, time.Now()))
	if res := Heuristic(q, DefaultWeights()); res.Evaluation >= 0 || res.WinningChances.Win >= 50 {
		t.Errorf("red race lead should score below zero for white: %+v", res)
	}
}

func TestEvaluateClampsEvaluation(t *testing.T) {
	var c position.Counts
	c.Points[23].White = 1
	c.BearOff.White = 14
	c.Points[22].Red = 15
	p := codec.Identify(position.New(c, time.Now()))

	res, err := New(nopLog()).Evaluate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Evaluation != 3 {
		t.Errorf("evaluation = %v, want clamp at 3", res.Evaluation)
	}
}

func TestNativePreferred(t *testing.T) {
	native := &fakeNative{
		initOK: true,
		result: analysis.PositionAnalysis{
			PositionID:     "ignored",
			WinningChances: analysis.WinningChances{Win: 60, Gammon: 15, Backgammon: 1},
			Evaluation:     0.3,
			BestMoves: []analysis.Move{
				{Notation: "13/11 6/5", From: 13, To: 11, Evaluation: 0.1},
				{Notation: "24/23 13/11", From: 24, To: 23, Evaluation: 0.2},
			},
			Confidence: 0.9,
		},
	}
	e := New(nopLog(), WithNative(native, "model.bin"))

	p := starting()
	res, err := e.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 0.9 || len(res.BestMoves) != 2 {
		t.Fatalf("native result not used: %+v", res)
	}
	if res.BestMoves[0].Notation != "24/23 13/11" {
		t.Errorf("moves not sorted best first: %+v", res.BestMoves)
	}
	if res.PositionID != p.ID {
		t.Errorf("position ID = %q, want %q", res.PositionID, p.ID)
	}
	if in := native.lastIn.Load(); in != codec.EngineInput(p) {
		t.Errorf("native got %v", in)
	}
}

func TestNativeFailuresFallBack(t *testing.T) {
	cases := map[string]*fakeNative{
		"error":   {initOK: true, err: errs.ErrEvaluatorUnavailable},
		"panic":   {initOK: true, panicMsg: "segfault in model"},
		"invalid": {initOK: true, result: analysis.PositionAnalysis{WinningChances: analysis.WinningChances{Win: 10, Gammon: 40}}},
		"no init": {initOK: false},
	}
	want := Heuristic(starting(), DefaultWeights())
	for name, native := range cases {
		t.Run(name, func(t *testing.T) {
			e := New(nopLog(), WithNative(native, ""))
			res, err := e.Evaluate(context.Background(), starting())
			if err != nil {
				t.Fatalf("native failure propagated: %v", err)
			}
			if !reflect.DeepEqual(res, want) {
				t.Errorf("expected heuristic result, got %+v", res)
			}
		})
	}
	if n := cases["no init"].evalCnt.Load(); n != 0 {
		t.Errorf("unavailable native evaluator was called %d times", n)
	}
}

func TestProbeHappensOnce(t *testing.T) {
	native := &fakeNative{initOK: true, err: errors.New("busy")}
	e := New(nopLog(), WithNative(native, ""))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Evaluate(context.Background(), starting())
		}()
	}
	wg.Wait()
	if !e.Init(context.Background()) || !e.Init(context.Background()) {
		t.Error("Init should keep returning the first answer")
	}
	if n := native.initCnt.Load(); n != 1 {
		t.Errorf("native Init called %d times, want 1", n)
	}
}

// stuckNative never answers Init on its own; release unblocks it.
type stuckNative struct {
	fakeNative
	honourCtx bool
	release   chan struct{}
}

func (s *stuckNative) Init(ctx context.Context, _ string) bool {
	s.initCnt.Add(1)
	if s.honourCtx {
		select {
		case <-ctx.Done():
		case <-s.release:
		}
	} else {
		<-s.release
	}
	return s.initOK
}

func newStuckNative(t *testing.T, honourCtx bool) *stuckNative {
	s := &stuckNative{fakeNative: fakeNative{initOK: true}, honourCtx: honourCtx, release: make(chan struct{})}
	t.Cleanup(func() { close(s.release) })
	return s
}

func evaluateWithin(ctx context.Context, t *testing.T, e *Engine, limit time.Duration) analysis.PositionAnalysis {
	t.Helper()
	type result struct {
		res analysis.PositionAnalysis
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := e.Evaluate(ctx, starting())
		done <- result{res, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Evaluate: %v", r.err)
		}
		return r.res
	case <-time.After(limit):
		t.Fatalf("Evaluate still blocked after %v", limit)
	}
	return analysis.PositionAnalysis{}
}

func TestPendingProbeDoesNotBlockEvaluate(t *testing.T) {
	native := newStuckNative(t, true)
	e := New(nopLog(), WithNative(native, ""), WithNativeTimeout(50*time.Millisecond))
	go e.Init(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res := evaluateWithin(ctx, t, e, 2*time.Second)
	if !reflect.DeepEqual(res, Heuristic(starting(), DefaultWeights())) {
		t.Errorf("expected heuristic while the probe is pending, got %+v", res)
	}
	if n := native.evalCnt.Load(); n != 0 {
		t.Errorf("native Evaluate called %d times before its probe finished", n)
	}
}

func TestProbeTimeoutFallsBack(t *testing.T) {
	native := newStuckNative(t, false)
	e := New(nopLog(), WithNative(native, ""), WithProbeTimeout(50*time.Millisecond))

	res := evaluateWithin(context.Background(), t, e, 2*time.Second)
	if !reflect.DeepEqual(res, Heuristic(starting(), DefaultWeights())) {
		t.Errorf("expected heuristic after the probe timed out, got %+v", res)
	}
	if e.Init(context.Background()) {
		t.Error("a probe that timed out must leave the native path off")
	}
}

func TestCancelledCallerDoesNotDecideProbe(t *testing.T) {
	native := &fakeNative{initOK: true, result: analysis.PositionAnalysis{
		WinningChances: analysis.WinningChances{Win: 55, Gammon: 10, Backgammon: 1},
		Confidence:     0.8,
	}}
	e := New(nopLog(), WithNative(native, ""))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	e.Init(cancelled)

	if !e.Init(context.Background()) {
		t.Fatal("native evaluator disabled by a cancelled caller")
	}
	res, err := e.Evaluate(context.Background(), starting())
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 0.8 {
		t.Errorf("native result not used: %+v", res)
	}
	if n := native.initCnt.Load(); n != 1 {
		t.Errorf("native Init called %d times, want 1", n)
	}
}

func TestNativeEvaluationBound(t *testing.T) {
	wide := analysis.PositionAnalysis{
		WinningChances: analysis.WinningChances{Win: 90, Gammon: 40, Backgammon: 5},
		Evaluation:     5,
		Confidence:     0.9,
	}
	w := DefaultWeights()
	w.EvalLimit = 1

	e := New(nopLog(), WithNative(&fakeNative{initOK: true, result: wide}, ""), WithWeights(w))
	res, err := e.Evaluate(context.Background(), starting())
	if err != nil {
		t.Fatal(err)
	}
	if res.Evaluation != 5 {
		t.Errorf("heuristic limit applied to native answer: %+v", res)
	}

	e = New(nopLog(), WithNative(&fakeNative{initOK: true, result: wide}, ""), WithNativeEvalLimit(3))
	if res, _ := e.Evaluate(context.Background(), starting()); res.Evaluation == 5 {
		t.Errorf("native evaluation outside the native bound was accepted: %+v", res)
	}
}

func TestEvaluateRecomputesStaleID(t *testing.T) {
	p := starting()
	p.ID = "stale"
	res, err := New(nopLog()).Evaluate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.PositionID != "4HPwATDgc/ABMA" {
		t.Errorf("position ID = %q, want the recomputed one", res.PositionID)
	}
}

func TestEvaluateRejectsOversizedCounters(t *testing.T) {
	p := starting()
	p.Bar.White = 200000000
	if _, err := New(nopLog()).Evaluate(context.Background(), p); !errors.Is(err, errs.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestEvaluateRejectsMalformedPosition(t *testing.T) {
	p := starting()
	p.Points = p.Points[:10]
	if _, err := New(nopLog()).Evaluate(context.Background(), p); !errors.Is(err, errs.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}

	c := position.Starting()
	c.Points[0].White = 0
	short := position.New(c, time.Now())
	if _, err := New(nopLog()).Evaluate(context.Background(), short); err != nil {
		t.Errorf("lenient engine should accept a short side: %v", err)
	}
	if _, err := New(nopLog(), WithStrictValidation(true)).Evaluate(context.Background(), short); !errors.Is(err, errs.ErrInvalidPosition) {
		t.Errorf("strict engine should reject a short side, got %v", err)
	}
}

func TestEvaluateBatch(t *testing.T) {
	ps := sampler.New(sampler.DefaultConfig(), rand.New(rand.NewSource(5))).SampleN(50)
	e := New(nopLog())
	got, err := e.EvaluateBatch(context.Background(), ps)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range ps {
		if !reflect.DeepEqual(got[i], Heuristic(p, DefaultWeights())) {
			t.Fatalf("batch result %d does not match its position", i)
		}
	}
}
