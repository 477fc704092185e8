package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/internal/server"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Log.WithFields(logrus.Fields{
		"config":  configPath,
		"storage": cfg.Storage.Backend,
		"jwt":     cfg.JWT.Enabled,
	}).Info("Starting cachegrid server")

	srv, err := server.New(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to create server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		logger.Log.WithField("signal", sig.String()).Info("Shutting down")
	}

	if err := srv.Shutdown(); err != nil {
		logger.Log.WithError(err).Error("Error during shutdown")
	}
	logger.Log.Info("Server stopped")
}
