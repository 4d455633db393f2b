package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gitlab.com/pixelgrid.net/internal/adapter/logging"
	"gitlab.com/pixelgrid.net/internal/config"
	"gitlab.com/pixelgrid.net/internal/submit"
)

func main() {
	masterAddr := flag.String("master", "127.0.0.1:9000", "master address")
	filterSize := flag.Int("filter-size", 3, "Gaussian kernel size (odd)")
	outDir := flag.String("out", "results", "directory for filtered images")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: submit [flags] image...")
		os.Exit(2)
	}

	_ = godotenv.Load()

	sysCfg := config.NewSystemConfig()
	logger := logging.NewZapLoggerWith(sysCfg.LogConfig.Level, sysCfg.LogConfig.Development)

	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	client := submit.New(*masterAddr, *filterSize, *outDir, logger)
	if err := client.Run(ctx, files); err != nil {
		logger.Error("Submission failed", "error", err)
		os.Exit(1)
	}

	logger.Info("All results received", "jobs", len(files))
}
