package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"bgscan/internal/domain/analysis"
	evaluatorRPC "bgscan/microservices/proto"
)

type EvaluatorStore interface {
	Init(ctx context.Context, modelRef string) bool
	Evaluate(ctx context.Context, encoded string) (analysis.PositionAnalysis, error)
}

type EvaluatorUseCase struct {
	store EvaluatorStore
	log   *zap.SugaredLogger
	evaluatorRPC.UnimplementedEvaluatorServer
}

func NewEvaluatorUseCase(store EvaluatorStore, log *zap.SugaredLogger) *EvaluatorUseCase {
	return &EvaluatorUseCase{
		store: store,
		log:   log,
	}
}

func (e *EvaluatorUseCase) Init(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	ok := e.store.Init(ctx, in.GetValue())
	e.log.Infow("init evaluator", "model", in.GetValue(), "ok", ok)
	return wrapperspb.Bool(ok), nil
}

func (e *EvaluatorUseCase) Evaluate(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	encoded := in.GetValue()
	if !strings.HasPrefix(encoded, "BM|") {
		return nil, status.Errorf(codes.InvalidArgument, "unexpected position encoding %q", encoded)
	}

	res, err := e.store.Evaluate(ctx, encoded)
	if err != nil {
		e.log.Errorw("evaluation failed", "position", encoded, "error", err)
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	out, err := evaluatorRPC.AnalysisToStruct(res)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
