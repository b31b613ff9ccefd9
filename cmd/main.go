package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/ecowatch_reports/internal/config"
	v1 "github.com/shenikar/ecowatch_reports/internal/handler/http/v1"
	"github.com/shenikar/ecowatch_reports/internal/service"
	"github.com/shenikar/ecowatch_reports/internal/webhook"
	"github.com/shenikar/ecowatch_reports/pkg/logger"
)

// @title EcoWatch Reports API
// @version 1.0
// @description Citizen incident reporting gateway for the EcoWatch site.
// @host localhost:8080
// @BasePath /api
func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Отправка отчётов: вебхук или только лог
	dispatcher := webhook.NewDispatcher(cfg, log)
	if cfg.ForwardingEnabled() {
		log.WithField("timeout", cfg.WebhookTimeout.String()).Info("Reports will be forwarded to the configured webhook")
	} else {
		log.Info("REPORT_WEBHOOK_URL is not set, reports will only be logged")
	}

	// Инициализация сервисов и хэндлеров
	reportService := service.NewReportService(dispatcher, log)
	handler := v1.NewHandler(reportService, log, cfg)
	router := v1.NewRouter(handler, cfg, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
