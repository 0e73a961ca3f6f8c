package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/service/quote"
	"github.com/vladislavdragonenkov/foodorder/internal/version"
)

func findFreePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.KVBackend = KVBackendMemory
	cfg.APIBaseURL = "http://127.0.0.1:1"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	require.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KVBackend = "invalid-driver"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	require.ErrorContains(t, err, "unsupported storage driver")
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := startMetricsServer(ctx, addr, testLogger(), healthcheck.NewHandler(version.GetVersion()))
	require.NotNil(t, srv)

	base := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	code, body := get(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, body)

	code, _ = get(t, base+"/healthz")
	require.Equal(t, http.StatusOK, code)

	code, body = get(t, base+"/livez")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)

	code, body = get(t, base+"/readyz")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ready", body)
}

func TestShutdownHelpers(t *testing.T) {
	logger := testLogger()

	shutdownHTTP(nil, logger)
	closeKafkaProducer(nil, logger)
	shutdownWorker("noop", nil, nil, logger)

	ran := make(chan struct{})
	cancel, done := startBackground(context.Background(), func(ctx context.Context) {
		close(ran)
		<-ctx.Done()
	})
	<-ran
	shutdownWorker("test", cancel, done, logger)

	select {
	case <-done:
	default:
		t.Fatal("worker should be stopped")
	}
}

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	producer, err := initKafkaProducer(nil, testLogger())
	require.NoError(t, err)
	require.Nil(t, producer)
}

func TestBreakerChecker(t *testing.T) {
	cb := quote.NewCircuitBreaker(1, time.Minute, testLogger())
	checker := breakerChecker(cb)
	require.Equal(t, healthcheck.StatusHealthy, checker.Check(context.Background()).Status)

	_ = cb.Execute("calculate_delivery", func() error { return errors.New("timeout") })
	check := checker.Check(context.Background())
	require.Equal(t, healthcheck.StatusDegraded, check.Status)
	require.Contains(t, check.Message, "local delivery estimate")
}
