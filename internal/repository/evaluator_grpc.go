package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"bgscan/internal/domain/analysis"
	"bgscan/internal/errors"
	evaluatorRPC "bgscan/microservices/proto"
)

// GrpcEvaluator reaches the evaluator microservice.
type GrpcEvaluator struct {
	log    *zap.SugaredLogger
	client evaluatorRPC.EvaluatorClient
}

func NewGrpcEvaluator(log *zap.SugaredLogger, conn grpc.ClientConnInterface) *GrpcEvaluator {
	return &GrpcEvaluator{
		log:    log,
		client: evaluatorRPC.NewEvaluatorClient(conn),
	}
}

func (g *GrpcEvaluator) Init(ctx context.Context, modelRef string) bool {
	resp, err := g.client.Init(ctx, wrapperspb.String(modelRef))
	if err != nil {
		g.log.Warnw("grpc evaluator init failed", "error", err)
		return false
	}
	return resp.GetValue()
}

func (g *GrpcEvaluator) Evaluate(ctx context.Context, encoded string) (analysis.PositionAnalysis, error) {
	resp, err := g.client.Evaluate(ctx, wrapperspb.String(encoded))
	if err != nil {
		return analysis.PositionAnalysis{}, fmt.Errorf("%w: %v", errors.ErrEvaluatorUnavailable, err)
	}
	return evaluatorRPC.StructToAnalysis(resp)
}
