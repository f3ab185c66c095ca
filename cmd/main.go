package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bgscan/internal/adapters"
	"bgscan/internal/bootstrap"
	analysisDelivery "bgscan/internal/delivery/analysis"
	historyDelivery "bgscan/internal/delivery/history"
	ownMiddleware "bgscan/internal/middleware"
	"bgscan/internal/repository"
	"bgscan/internal/usecase/evaluation"
	"bgscan/internal/usecase/extraction"
	historyUsecase "bgscan/internal/usecase/history"
	"bgscan/internal/usecase/sampler"
)

type mainDeliveryHandler struct {
	analysis *analysisDelivery.AnalysisHandler
	history  *historyDelivery.HistoryHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

type stores struct {
	history  historyUsecase.HistoryStore
	settings historyUsecase.SettingsStore
	cache    analysisDelivery.AnalysisCache
}

func main() {
	logger := bootstrap.NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Errorw("Failed to setup configuration", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	databaseAdapters := initDatabaseAdapters(ctx, logger, cfg)
	defer databaseAdapters.close(context.Background())

	native, closeNative := initNativeEvaluator(logger, cfg)
	defer closeNative()

	engineOpts := []evaluation.Option{
		evaluation.WithWeights(evaluation.WeightsFrom(cfg.Heuristic)),
		evaluation.WithNativeTimeout(cfg.Evaluator.Timeout),
		evaluation.WithProbeTimeout(cfg.Evaluator.InitTimeout),
		evaluation.WithNativeEvalLimit(cfg.Evaluator.EvalLimit),
		evaluation.WithStrictValidation(cfg.Evaluator.StrictValidation),
	}
	if native != nil {
		engineOpts = append(engineOpts, evaluation.WithNative(native, cfg.Evaluator.ModelPath))
	}
	engine := evaluation.New(logger, engineOpts...)
	go engine.Init(ctx)

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(ctx, *cfg, logger, engine, databaseAdapters)
	handlers.Router(r, cfg.IsLocalCors)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go handleShutdown(cancel, server, logger)

	logger.Infof("Server is running on port %s", cfg.ServerPort)
	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("Failed to start server", "error", err)
	}
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	r.Use(middleware.RequestID)
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/scan", h.analysis.HandleScan)
	r.Get("/ws/scan", h.analysis.HandleScanSocket)
	r.Post("/evaluate", h.analysis.HandleEvaluate)
	r.Get("/sample", h.analysis.HandleSample)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.history.HandleList)
		r.Delete("/", h.history.HandleClear)
		r.Get("/{id}", h.history.HandleGet)
		r.Delete("/{id}", h.history.HandleDelete)
		r.Get("/{id}/report", h.history.HandleReport)
	})

	r.Get("/settings", h.history.HandleGetSettings)
	r.Patch("/settings", h.history.HandlePatchSettings)
}

// initDatabaseAdapters connects Mongo and Redis. A store that cannot be
// reached is left nil and its data is kept in memory instead.
func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *dataBaseAdapters {
	a := &dataBaseAdapters{}

	mongoAdapter := adapters.NewAdapterMongo(cfg, log)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Warnw("Не удалось инициализировать MongoDB, история хранится в памяти", "error", err)
	} else {
		a.mongoAdapter = mongoAdapter
	}

	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Warnw("Не удалось инициализировать Redis, настройки хранятся в памяти, кэш отключен", "error", err)
	} else {
		a.redisAdapter = redisAdapter
	}

	log.Info("Адаптеры баз данных инициализированы")
	return a
}

func (a *dataBaseAdapters) close(ctx context.Context) {
	if a.mongoAdapter != nil {
		_ = a.mongoAdapter.Close(ctx)
	}
	if a.redisAdapter != nil {
		_ = a.redisAdapter.Close(ctx)
	}
}

func (a *dataBaseAdapters) openStores(ctx context.Context, cfg bootstrap.Config, log *zap.SugaredLogger) stores {
	memory := historyUsecase.NewMemoryStore()
	s := stores{history: memory, settings: memory}

	if a.mongoAdapter != nil {
		historyRepo := repository.NewHistoryRepository(log, a.mongoAdapter.Database)
		if err := historyRepo.EnsureIndexes(ctx); err != nil {
			log.Warnw("history indexes were not created", "error", err)
		}
		s.history = historyRepo
	}
	if a.redisAdapter != nil {
		s.settings = repository.NewSettingsRepository(log, a.redisAdapter.GetClient())
		s.cache = repository.NewAnalysisCache(log, a.redisAdapter.GetClient(), cfg.AnalysisCacheTTL)
	}
	return s
}

// initNativeEvaluator builds the evaluator client selected by EVALUATOR_KIND.
// The returned func releases it.
func initNativeEvaluator(log *zap.SugaredLogger, cfg *bootstrap.Config) (evaluation.Evaluator, func()) {
	noop := func() {}
	switch cfg.Evaluator.Kind {
	case "":
		return nil, noop
	case "process":
		command := strings.Fields(cfg.Evaluator.Command)
		if len(command) == 0 {
			log.Warn("EVALUATOR_COMMAND is empty, native evaluator disabled")
			return nil, noop
		}
		ev := repository.NewProcessEvaluator(log, command[0], command[1:]...)
		return ev, func() { _ = ev.Close() }
	case "http":
		client := &http.Client{Timeout: cfg.Evaluator.Timeout}
		return repository.NewHttpEvaluator(log, cfg.Evaluator.Url, client), noop
	case "grpc":
		grpcAdapter := adapters.NewAdapterGrpc(cfg, log)
		if err := grpcAdapter.Init(); err != nil {
			log.Warnw("grpc evaluator disabled", "error", err)
			return nil, noop
		}
		return repository.NewGrpcEvaluator(log, grpcAdapter.GetConn()), func() { _ = grpcAdapter.Close() }
	default:
		log.Warnw("unknown EVALUATOR_KIND, native evaluator disabled", "kind", cfg.Evaluator.Kind)
		return nil, noop
	}
}

func initializeDeliveryHandlers(
	ctx context.Context,
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	engine *evaluation.Engine,
	databaseAdapters *dataBaseAdapters,
) *mainDeliveryHandler {
	s := databaseAdapters.openStores(ctx, cfg, log)

	historyUC := historyUsecase.NewHistoryUseCase(s.history, cfg.HistoryLimit, log)
	settingsUC := historyUsecase.NewSettingsUseCase(s.settings, log)
	pipeline := extraction.New(extraction.ConfigFrom(cfg.Pipeline), log)
	smp := sampler.New(sampler.DefaultConfig(), nil)

	return &mainDeliveryHandler{
		analysis: analysisDelivery.NewAnalysisHandler(cfg, log, pipeline, engine, smp, historyUC, s.cache),
		history:  historyDelivery.NewHistoryHandler(log, historyUC, settingsUC),
	}
}

func handleShutdown(cancelFunc context.CancelFunc, server *http.Server, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorw("server shutdown failed", "error", err)
	}
	cancelFunc()
}
