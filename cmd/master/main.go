package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"gitlab.com/pixelgrid.net/internal/adapter/logging"
	"gitlab.com/pixelgrid.net/internal/adapter/redis/statsport"
	"gitlab.com/pixelgrid.net/internal/config"
	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/core/services/dispatch"
	logger2 "gitlab.com/pixelgrid.net/internal/global/logger"
	http2 "gitlab.com/pixelgrid.net/internal/http"
	"gitlab.com/pixelgrid.net/internal/tcp"
)

func main() {
	port := flag.Int("port", 9000, "TCP dispatch port")
	httpPort := flag.Int("http-port", 9090, "HTTP status port (0 disables)")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	logger2.Info("Starting image dispatch master service")

	sysCfg := config.NewSystemConfig()
	if err := config.ApplyFile(sysCfg, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewZapLoggerWith(sysCfg.LogConfig.Level, sysCfg.LogConfig.Development)
	logger.Info("Master configured", "port", *port, "policy", sysCfg.DispatchConfig.Policy)

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	options := []dispatch.DispatcherOption{
		dispatch.WithPolicy(dispatch.NewPolicy(sysCfg.DispatchConfig.Policy)),
	}

	if sysCfg.RedisConfig.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.RedisConfig.Addr,
			Password: sysCfg.RedisConfig.Password,
			DB:       sysCfg.RedisConfig.DB,
		})
		defer redisClient.Close()
		options = append(options, dispatch.WithStatsStore(statsport.NewStatsStore(redisClient, logger)))
		logger.Info("Statistics mirror enabled", "addr", sysCfg.RedisConfig.Addr)
	}

	if sysCfg.DispatchConfig.SweepEnabled {
		options = append(options, dispatch.WithPendingSweep(
			sysCfg.DispatchConfig.SweepInterval,
			sysCfg.DispatchConfig.SweepAfter,
		))
	}

	dispatcher := dispatch.NewDispatcher(logger, options...)

	tcpServer := tcp.NewServer(logger, tcp.WithAddress(fmt.Sprintf(":%d", *port)))
	if err := tcpServer.Start(); err != nil {
		logger.Error("Failed to start TCP server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go dispatcher.Run(ctx, tcpServer.Events())

	var httpServer *http2.Server
	if *httpPort > 0 {
		httpServer = http2.NewServer(*httpPort, "imageDispatchMaster", dispatcher, logger)
		if err := httpServer.Init(); err != nil {
			logger.Error("Failed to init HTTP server", "error", err)
			os.Exit(1)
		}
		httpServer.Start(ctx)
	}

	if sysCfg.DispatchConfig.ProgressInterval > 0 {
		go logProgress(ctx, dispatcher, sysCfg.DispatchConfig.ProgressInterval, logger)
	}

	<-quit
	logger.Info("Shutting down master...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := tcpServer.Stop(stopCtx); err != nil {
		logger.Error("TCP server shutdown incomplete", "error", err)
	}
	if httpServer != nil {
		httpServer.Stop(stopCtx)
	}

	logger.Info("successfully shutdown master")
}

// logProgress periodically reports the dispatch counters.
func logProgress(ctx context.Context, dispatcher dispatch.IDispatchService, interval time.Duration, logger primary.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := dispatcher.Snapshot()
			busy := 0
			for _, w := range snap.Workers {
				if w.Busy {
					busy++
				}
			}
			logger.Info("Dispatch progress",
				"received", snap.Received,
				"completed", snap.Completed,
				"queued", len(snap.QueuedPackets),
				"workers", len(snap.Workers),
				"busy", busy,
			)
		}
	}
}
