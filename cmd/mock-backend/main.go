// Команда mock-backend поднимает заглушку API ресторана для локальной разработки.
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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/backend/mock"
)

const (
	defaultAddr     = ":8000"
	shutdownTimeout = 5 * time.Second
)

type settings struct {
	addr    string
	devUser string
	cfg     mock.Config
}

func readSettings(getenv func(string) string) settings {
	s := settings{addr: defaultAddr, cfg: mock.DefaultConfig()}
	if v := strings.TrimSpace(getenv("FOODORDER_MOCK_ADDR")); v != "" {
		s.addr = v
	}
	if v := strings.TrimSpace(getenv("FOODORDER_MOCK_JWT_SECRET")); v != "" {
		s.cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(getenv("FOODORDER_MOCK_TOKEN_TTL")); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil && ttl > 0 {
			s.cfg.TokenTTL = ttl
		} else {
			log.WithField("value", v).Warn("invalid FOODORDER_MOCK_TOKEN_TTL, using default")
		}
	}
	s.devUser = strings.TrimSpace(getenv("FOODORDER_MOCK_DEV_USER"))
	return s
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Fatal("не удалось прочитать .env")
	}
	gin.SetMode(gin.ReleaseMode)

	s := readSettings(os.Getenv)
	logger := log.WithField("component", "mock-backend")
	backend := mock.New(s.cfg, logger)

	if s.devUser != "" {
		token, err := backend.IssueToken(s.devUser)
		if err != nil {
			logger.WithError(err).Fatal("не удалось выпустить dev-токен")
		}
		logger.WithField("user_id", s.devUser).Infof("dev-токен: %s", token)
	}

	srv := &http.Server{Addr: s.addr, Handler: backend.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("mock backend слушает %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown with error")
		}
		logger.Info("mock backend остановлен")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("mock backend завершился с ошибкой")
		}
	}
}
