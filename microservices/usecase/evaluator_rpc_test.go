package usecase

import (
	"context"
	"errors"
	"net"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"bgscan/internal/domain/analysis"
	errs "bgscan/internal/errors"
	"bgscan/internal/repository"
	evaluatorRPC "bgscan/microservices/proto"
)

type fakeStore struct {
	model string
}

func (f *fakeStore) Init(_ context.Context, modelRef string) bool {
	f.model = modelRef
	return modelRef != ""
}

func (f *fakeStore) Evaluate(_ context.Context, encoded string) (analysis.PositionAnalysis, error) {
	if encoded == "BM|fail" {
		return analysis.PositionAnalysis{}, errs.ErrEvaluatorUnavailable
	}
	return analysis.PositionAnalysis{
		PositionID:     "ignored",
		WinningChances: analysis.WinningChances{Win: 62.5, Gammon: 18, Backgammon: 3},
		Evaluation:     0.45,
		BestMoves: []analysis.Move{
			{Notation: "13/7", From: 13, To: 7, Evaluation: 0.45, WinRate: 62.5},
		},
		Confidence: 0.8,
	}, nil
}

func dialEvaluator(t *testing.T, store EvaluatorStore) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	evaluatorRPC.RegisterEvaluatorServer(server, NewEvaluatorUseCase(store, zap.NewNop().Sugar()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEvaluatorOverGrpc(t *testing.T) {
	store := &fakeStore{}
	conn := dialEvaluator(t, store)
	ev := repository.NewGrpcEvaluator(zap.NewNop().Sugar(), conn)
	ctx := context.Background()

	if !ev.Init(ctx, "wildbg.onnx") || store.model != "wildbg.onnx" {
		t.Fatalf("Init did not reach the store (model %q)", store.model)
	}
	if ev.Init(ctx, "") {
		t.Error("empty model should not initialise")
	}

	res, err := ev.Evaluate(ctx, "BM|ok")
	if err != nil {
		t.Fatal(err)
	}
	if res.WinningChances.Win != 62.5 || res.Evaluation != 0.45 || res.Confidence != 0.8 {
		t.Errorf("analysis lost in transit: %+v", res)
	}
	if len(res.BestMoves) != 1 || res.BestMoves[0].From != 13 || res.BestMoves[0].To != 7 {
		t.Errorf("moves lost in transit: %+v", res.BestMoves)
	}

	if _, err = ev.Evaluate(ctx, "BM|fail"); !errors.Is(err, errs.ErrEvaluatorUnavailable) {
		t.Errorf("expected ErrEvaluatorUnavailable, got %v", err)
	}
}

func TestEvaluateRejectsUnknownEncoding(t *testing.T) {
	client := evaluatorRPC.NewEvaluatorClient(dialEvaluator(t, &fakeStore{}))
	_, err := client.Evaluate(context.Background(), wrapperspb.String("XGID=-a"))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
}
