package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"netif-recorder/internal/application/polling"
	"netif-recorder/internal/infrastructure/api"
	"netif-recorder/internal/infrastructure/config"
	"netif-recorder/internal/infrastructure/container"
	"netif-recorder/internal/infrastructure/metrics"
	"netif-recorder/pkg/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const version = "0.1.0"

func main() {
	// 로거 초기화
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// 설정 로드
	configLoader := config.NewEnvironmentConfigLoader()
	cfg, err := configLoader.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warnf("Unknown LOG_LEVEL value: %s. Using default Info level.", cfg.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// 의존성 주입 컨테이너 생성
	appContainer, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create dependency injection container")
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			logger.WithError(err).Error("Failed to cleanup container")
		}
	}()

	app := NewApplication(appContainer, logger)
	if err := app.Run(); err != nil {
		logger.WithError(err).Error("Application stopped with error")
		os.Exit(1)
	}
}

// Application은 메인 애플리케이션 구조체입니다
type Application struct {
	container *container.Container
	logger    *logrus.Logger
	server    *http.Server
}

// NewApplication은 새로운 Application을 생성합니다
func NewApplication(container *container.Container, logger *logrus.Logger) *Application {
	return &Application{
		container: container,
		logger:    logger,
	}
}

// Run은 시그널을 받을 때까지 애플리케이션을 실행합니다
func (a *Application) Run() error {
	cfg := a.container.GetConfig()

	osID := "unknown"
	hostOS, err := a.container.GetOSDetector().DetectOS()
	if err != nil {
		a.logger.WithError(err).Warn("Failed to detect host OS")
	} else {
		osID = hostOS.ID
		a.logger.WithFields(logrus.Fields{
			"os":      hostOS.ID,
			"version": hostOS.VersionID,
		}).Info("Operating system detected")
	}
	metrics.SetRecorderInfo(version, cfg.Store.Backend, nodeName(a.logger), osID)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 시작 시 현재 기록 수를 게이지에 반영
	if _, err := a.container.GetStore().Load(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to load record set at startup")
		a.container.GetHealthService().UpdateStoreHealth(false, err)
	}

	if w := a.container.GetStoreWatcher(); w != nil {
		if err := w.Start(ctx); err != nil {
			a.logger.WithError(err).Warn("Record file watching disabled")
		}
	}

	serverErr := a.startServer(cfg.HTTP.Port)

	if cfg.Recorder.ReconcileInterval > 0 {
		go a.runReconcileLoop(ctx, cfg)
	}

	a.logger.WithField("version", version).Info("Network interface recorder started")

	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	case err := <-serverErr:
		cancel()
		a.shutdown()
		return err
	}

	a.shutdown()
	return nil
}

func (a *Application) runReconcileLoop(ctx context.Context, cfg *config.Config) {
	strategy := a.container.NewPollingStrategy()
	a.logger.WithFields(logrus.Fields{
		"strategy":      cfg.Recorder.Strategy,
		"base_interval": cfg.Recorder.ReconcileInterval,
		"max_interval":  cfg.Recorder.MaxInterval,
	}).Info("Periodic reconcile enabled")

	controller := polling.NewPollingController(strategy, a.logger)
	if err := controller.Start(ctx, a.container.NewReconcileTask()); err != nil && err != context.Canceled {
		a.logger.WithError(err).Error("Periodic reconcile stopped")
	}
}

// startServer는 명령, 이벤트, 헬스, 메트릭 엔드포인트를 제공하는 서버를 시작합니다
func (a *Application) startServer(port string) <-chan error {
	mux := http.NewServeMux()
	mux.Handle(api.CommandPrefix, a.container.GetCommandHandler())
	mux.Handle(api.EventsPath, a.container.GetEventHub())
	mux.Handle("/healthz", a.container.GetHealthService())
	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithFields(logrus.Fields{
			"port":     port,
			"commands": a.container.GetCommandHandler().Commands(),
		}).Info("HTTP server started")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

// shutdown은 HTTP 서버를 정리합니다
func (a *Application) shutdown() {
	if a.server == nil {
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Failed to shutdown HTTP server")
	}
}

// nodeName은 도메인 접미사를 뗀 호스트네임을 반환합니다
func nodeName(logger *logrus.Logger) string {
	hostname, err := os.Hostname()
	if err != nil {
		logger.WithError(err).Warn("Failed to read hostname")
		return "unknown"
	}

	if idx := strings.Index(hostname, "."); idx != -1 {
		hostname = hostname[:idx]
	}
	if err := utils.ValidateHostname(hostname); err != nil {
		logger.WithError(err).WithField("hostname", hostname).Warn("Invalid hostname")
		return "unknown"
	}
	return hostname
}
