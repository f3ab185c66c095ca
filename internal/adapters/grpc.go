package adapters

import (
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"bgscan/internal/bootstrap"
)

// AdapterGrpc holds the client connection to the evaluator microservice.
type AdapterGrpc struct {
	conn *grpc.ClientConn
	cfg  *bootstrap.Config
	log  *zap.SugaredLogger
}

func NewAdapterGrpc(cfg *bootstrap.Config, log *zap.SugaredLogger) *AdapterGrpc {
	return &AdapterGrpc{
		cfg: cfg,
		log: log,
	}
}

// Init creates the connection lazily; nothing is dialed until the first RPC.
func (a *AdapterGrpc) Init() error {
	conn, err := grpc.NewClient(a.cfg.Evaluator.GrpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create grpc client for %s: %w", a.cfg.Evaluator.GrpcAddr, err)
	}
	a.conn = conn
	a.log.Infof("grpc evaluator client created for %s", a.cfg.Evaluator.GrpcAddr)
	return nil
}

func (a *AdapterGrpc) GetConn() *grpc.ClientConn {
	return a.conn
}

func (a *AdapterGrpc) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
