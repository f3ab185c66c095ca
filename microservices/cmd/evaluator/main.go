package main

import (
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/grpc"

	"bgscan/internal/bootstrap"
	"bgscan/internal/repository"
	evaluatorRPC "bgscan/microservices/proto"
	"bgscan/microservices/usecase"
)

func main() {
	logger := bootstrap.NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Errorw("Failed to setup configuration", "error", err)
		return
	}

	command := strings.Fields(cfg.Evaluator.Command)
	if len(command) == 0 {
		logger.Error("EVALUATOR_COMMAND is empty")
		return
	}

	lis, err := net.Listen("tcp", ":"+cfg.Evaluator.GrpcPort)
	if err != nil {
		logger.Fatalw("cant listen port", "port", cfg.Evaluator.GrpcPort, "error", err)
	}

	storage := repository.NewProcessEvaluator(logger, command[0], command[1:]...)
	defer storage.Close()

	server := grpc.NewServer()
	evaluatorRPC.RegisterEvaluatorServer(server, usecase.NewEvaluatorUseCase(storage, logger))

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("Остановка сервера оценщика")
		server.GracefulStop()
	}()

	logger.Infof("starting evaluator server at :%s", cfg.Evaluator.GrpcPort)
	if err = server.Serve(lis); err != nil {
		logger.Errorw("grpc server stopped", "error", err)
	}
}
