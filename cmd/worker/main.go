package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gitlab.com/pixelgrid.net/internal/adapter/logging"
	"gitlab.com/pixelgrid.net/internal/config"
	"gitlab.com/pixelgrid.net/internal/core/services/filter"
	logger2 "gitlab.com/pixelgrid.net/internal/global/logger"
	"gitlab.com/pixelgrid.net/internal/worker"
)

func main() {
	port := flag.Int("port", 9100, "advertised worker port")
	masterAddr := flag.String("master", "127.0.0.1:9000", "master address")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	logger2.Info("Starting filter worker service")

	sysCfg := config.NewSystemConfig()
	if err := config.ApplyFile(sysCfg, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewZapLoggerWith(sysCfg.LogConfig.Level, sysCfg.LogConfig.Development)
	mode := filter.ParseMode(sysCfg.WorkerConfig.FilterMode)
	logger.Info("Starting filter worker", "port", *port, "master", *masterAddr, "mode", string(mode))

	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down worker...")
		cancel()
	}()

	node := worker.New(*port, *masterAddr, mode, logger)
	if err := node.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("successfully shutdown worker")
}
