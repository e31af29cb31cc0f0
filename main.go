package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/example/krishak/internal/advisor"
	"github.com/example/krishak/internal/auth"
	"github.com/example/krishak/internal/classifier"
	"github.com/example/krishak/internal/config"
	"github.com/example/krishak/internal/diagnosis"
	"github.com/example/krishak/internal/geo"
	"github.com/example/krishak/internal/grpcclient"
	"github.com/example/krishak/internal/handlers"
	"github.com/example/krishak/internal/labels"
	"github.com/example/krishak/internal/logging"
	"github.com/example/krishak/internal/mandi"
	"github.com/example/krishak/internal/remedy"
	"github.com/example/krishak/internal/usecase"
	"github.com/example/krishak/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	catalog, err := remedy.Load(cfg.RemedyCatalogPath)
	if err != nil {
		logger.Fatal("failed to load remedy catalog", zap.Error(err), zap.String("path", cfg.RemedyCatalogPath))
	}
	engine := diagnosis.NewEngine(cfg.Diagnosis, catalog)

	models, conn := loadModel(ctx, cfg, logger)
	defer models.Close() //nolint:errcheck
	if conn != nil {
		defer conn.Close()
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	cache := initCache(redisCtx, cfg.RedisAddr, logger)

	uc := usecase.NewDiagnosisUseCase(models, engine, cache, logger).WithResultTTL(cfg.ResultTTL)

	svc := handlers.Services{
		Diagnosis: uc,
		Weather:   weather.NewClient(cfg.OpenWeatherAPIKey, "", nil),
		Geo:       geo.NewClient("", nil, logger),
		Mandi:     mandi.NewClient(cfg.DataGovAPIKey, "", nil),
		Logger:    logger,
	}
	adv, err := advisor.New(ctx, advisor.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, svc.Mandi, logger)
	switch {
	case err == nil:
		svc.Advisor = adv
	case errors.Is(err, advisor.ErrNotConfigured):
		logger.Warn("GEMINI_API_KEY not set, chat and soil-card routes disabled")
	default:
		logger.Error("advisor unavailable", zap.Error(err))
	}

	var authMiddleware gin.HandlerFunc
	if cfg.JWTSecret != "" {
		authMiddleware = auth.JWTMiddleware(cfg.JWTSecret, cfg.JWTAudience, logger)
	} else {
		logger.Warn("JWT_SECRET not set, API routes are unauthenticated")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = handlers.MaxUploadSize
	handlers.RegisterRoutes(r, svc, authMiddleware)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("krishak API listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("classifier_backend", cfg.ClassifierBackend),
		zap.Bool("model_ready", models.Status().Ready))
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// loadModel never aborts startup: a missing model leaves diagnosis answering 503.
func loadModel(ctx context.Context, cfg config.Config, logger *zap.Logger) (*classifier.Handle, *grpc.ClientConn) {
	labelSource := func() (diagnosis.LabelList, error) {
		return labels.LoadFile(cfg.LabelsPath)
	}

	var conn *grpc.ClientConn
	factory := func(ctx context.Context, list diagnosis.LabelList) (classifier.Classifier, error) {
		switch cfg.ClassifierBackend {
		case config.BackendGRPC:
			c, cc, err := grpcclient.DialClassifier(ctx, cfg.ClassifierAddr, logger)
			if err != nil {
				return nil, err
			}
			conn = cc
			return c, nil
		default:
			return classifier.NewOnnxClassifier(classifier.OnnxConfig{
				LibraryPath: cfg.OnnxLibraryPath,
				ModelPath:   cfg.ModelPath,
				InputName:   cfg.ModelInputName,
				OutputName:  cfg.ModelOutputName,
				NumClasses:  len(list),
			}, logger)
		}
	}

	return classifier.Load(ctx, cfg.ClassifierBackend, labelSource, factory, logger), conn
}

func initCache(ctx context.Context, addr string, logger *zap.Logger) usecase.Cache {
	if addr == "" {
		logger.Info("REDIS_ADDR not set, results are not retrievable by id")
		return usecase.NopCache{}
	}
	cache := usecase.NewRedisCache(redis.NewClient(&redis.Options{Addr: addr}), "krishak")
	if err := cache.Ping(ctx); err != nil {
		logger.Error("redis connection failed, continuing without result cache", zap.Error(err), zap.String("addr", addr))
		_ = cache.Close()
		return usecase.NopCache{}
	}
	return cache
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
