// Package app собирает сервис корзины: хранилища, клиент API, gRPC и HTTP-метрики.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/foodorder/internal/cart"
	"github.com/vladislavdragonenkov/foodorder/internal/client"
	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/idgen"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/notify"
	"github.com/vladislavdragonenkov/foodorder/internal/service/checkout"
	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
	"github.com/vladislavdragonenkov/foodorder/internal/service/quote"
	"github.com/vladislavdragonenkov/foodorder/internal/version"
)

const grpcStopTimeout = 5 * time.Second

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	ids, err := idgen.NewSnowflake(cfg.SnowflakeNode)
	if err != nil {
		return fmt.Errorf("init line id generator: %w", err)
	}

	cartMetrics := metrics.NewCartMetrics()
	workerMetrics := metrics.NewWorkerMetricsWithRegisterer(prometheus.DefaultRegisterer)

	tokens := client.NewTokenStore(deps.kv, logger.WithField("component", "token-store"))
	if cfg.APIToken != "" {
		if err := tokens.Save(ctx, cfg.APIToken); err != nil {
			logger.WithError(err).Warn("failed to store api token")
		}
	}
	api := client.New(client.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, tokens, logger.WithField("component", "api-client"))

	store := cart.New(ctx, deps.kv,
		cart.WithIDGenerator(ids),
		cart.WithMetrics(cartMetrics),
		cart.WithLogger(logger.WithField("component", "cart-store")),
	)
	resolver := quote.NewResolver(api, cfg.RestaurantOrigin,
		quote.WithMetrics(cartMetrics),
		quote.WithLogger(logger.WithField("component", "quote-resolver")),
	)

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(kafkaProducer, logger)

	submitterOpts := []checkout.SubmitterOption{
		checkout.WithSubmitterMetrics(cartMetrics),
		checkout.WithSubmitterLogger(logger.WithField("component", "order-submitter")),
		checkout.WithSubmissionTTL(cfg.SubmissionTTL),
	}
	var (
		outboxCancel context.CancelFunc
		outboxDone   <-chan struct{}
	)
	if kafkaProducer != nil {
		submitterOpts = append(submitterOpts, checkout.WithOutbox(deps.outboxRepo))
		outboxCancel, outboxDone = startOutboxWorker(ctx, cfg, deps.outboxRepo, kafkaProducer, workerMetrics, logger)
	}
	defer shutdownWorker("outbox", outboxCancel, outboxDone, logger)

	cleanupCancel, cleanupDone := startCleanupWorker(ctx, cfg, deps.submissionRepo, workerMetrics, logger)
	defer shutdownWorker("submission-cleanup", cleanupCancel, cleanupDone, logger)

	submitter := checkout.NewSubmitter(api, deps.submissionRepo, store, submitterOpts...)
	checkoutSvc := checkout.NewService(store, resolver, api, submitter,
		notify.New(nil, logger.WithField("component", "notifier")),
		logger.WithField("component", "checkout-service"),
	)

	serviceLogger := logger.WithField("layer", "grpc")
	cartService := grpcsvc.NewCartService(store, checkoutSvc, api, serviceLogger)

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcsvc.RegisterCartServiceServer(grpcServer, cartService)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("cart_store", deps.storageChecker)
	healthHandler.RegisterChecker("delivery_api", breakerChecker(resolver.Breaker()))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.Shutdown()
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// breakerChecker понижает статус до degraded, пока API доставки отключено
// circuit breaker'ом: доставка в это время считается по локальному тарифу.
func breakerChecker(cb *quote.CircuitBreaker) healthcheck.Checker {
	return healthcheck.NewDegradedChecker("delivery_api", func(context.Context) error {
		if state := cb.State(); state == quote.CircuitOpen {
			return fmt.Errorf("circuit %s, using local delivery estimate", state)
		}
		return nil
	})
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(grpcStopTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics, /healthz, /livez и /readyz.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
