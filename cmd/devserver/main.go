package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birbparty/flat-client/internal/devserver"
	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	tcfg := telemetry.NewConfigFromEnv()
	tcfg.ServiceName = "flat-devserver"
	if err := telemetry.Init(tcfg); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize telemetry")
	}
	log := telemetry.L()

	cfg, err := devserver.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	server, err := devserver.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create server")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("🛑 Shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Server forced to shutdown")
		}
	}()

	log.WithFields(logrus.Fields{
		"address": cfg.Address(),
		"email":   cfg.Email,
		"phone":   cfg.Phone,
		"rooms":   cfg.RoomCount,
	}).Info("🚀 Flat dev server listening")

	if err := server.Listen(); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Failed to flush telemetry")
	}
}
