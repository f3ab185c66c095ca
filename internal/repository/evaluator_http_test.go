package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"bgscan/internal/domain/analysis"
	errs "bgscan/internal/errors"
)

func TestHttpEvaluator(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /init", func(w http.ResponseWriter, r *http.Request) {
		var req initRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(initResponse{Ok: req.Model == "net.bin"})
	})
	mux.HandleFunc("POST /evaluate", func(w http.ResponseWriter, r *http.Request) {
		var req evaluateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ID == "" || req.Position == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(analysis.PositionAnalysis{
			PositionID:     req.Position,
			WinningChances: analysis.WinningChances{Win: 70, Gammon: 20, Backgammon: 2},
			Evaluation:     0.8,
			BestMoves:      []analysis.Move{},
			Confidence:     0.9,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ev := NewHttpEvaluator(zap.NewNop().Sugar(), srv.URL+"/", nil)
	ctx := context.Background()
	if !ev.Init(ctx, "net.bin") {
		t.Error("Init(net.bin) = false")
	}
	if ev.Init(ctx, "other.bin") {
		t.Error("Init(other.bin) = true")
	}

	res, err := ev.Evaluate(ctx, "BM|test")
	if err != nil {
		t.Fatal(err)
	}
	if res.PositionID != "BM|test" || res.WinningChances.Win != 70 {
		t.Errorf("unexpected analysis: %+v", res)
	}
}

func TestHttpEvaluatorUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ev := NewHttpEvaluator(zap.NewNop().Sugar(), srv.URL, srv.Client())
	if ev.Init(context.Background(), "") {
		t.Error("Init should fail on 503")
	}
	if _, err := ev.Evaluate(context.Background(), "BM|"); !errors.Is(err, errs.ErrEvaluatorUnavailable) {
		t.Errorf("expected ErrEvaluatorUnavailable, got %v", err)
	}
}
