package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simplestorage/internal/application"
	"simplestorage/internal/config"
	"simplestorage/internal/contract"
	"simplestorage/internal/infrastructure/ethrpc"
	"simplestorage/internal/infrastructure/logging"
	"simplestorage/internal/infrastructure/ratelimit"
	"simplestorage/internal/infrastructure/telemetry"
	"simplestorage/internal/interfaces/httpapi"

	_ "simplestorage/docs/swagger"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// @title			Simple Storage dApp API
// @version		1.0
// @description	Read access to the SimpleStorage contract: the stored value and its ValueUpdated history.
// @BasePath		/
// @tag.name		simple-storage
func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logFile, err := logging.Init(logging.Config{
		Service:    "storage-gateway",
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		slog.Error("logger init error", "err", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracer(ctx, "storage-gateway", version, cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing init error", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				slog.Warn("tracing shutdown error", "err", err)
			}
		}()
	}

	rpcClient, err := ethrpc.NewClient(ctx, ethrpc.Config{
		URL:     cfg.RPCURL,
		Address: cfg.ContractAddress,
		Timeout: cfg.RPCTimeout,
	})
	if err != nil {
		slog.Error("rpc error", "err", err)
		os.Exit(1)
	}
	defer rpcClient.Close()

	binding, err := contract.NewSimpleStorage(cfg.ContractAddress)
	if err != nil {
		slog.Error("contract binding error", "err", err)
		os.Exit(1)
	}

	gateway, err := application.NewStorageGateway(rpcClient, binding, application.GatewayConfig{
		RPCTimeout:   cfg.RPCTimeout,
		MaxBlockSpan: cfg.MaxBlockSpan,
	})
	if err != nil {
		slog.Error("gateway error", "err", err)
		os.Exit(1)
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		slog.Error("throttle error", "err", err)
		os.Exit(1)
	}
	defer closeLimiter()

	httpServer, err := httpapi.NewServer(cfg, gateway, rpcClient, limiter, httpapi.NewMetrics(), httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		slog.Error("http server error", "err", err)
		os.Exit(1)
	}

	slog.Info("http server listening",
		"addr", cfg.HTTPAddr,
		"contract", cfg.ContractAddress.Hex(),
		"rpc_timeout", cfg.RPCTimeout.String(),
		"max_block_range", cfg.MaxBlockSpan,
	)
	if err := httpServer.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("http server error", "err", err)
		os.Exit(1)
	}
	slog.Info("http server stopped")
}

// newLimiter uses Redis when REDIS_ADDR is set so replicas share windows,
// and per-process token buckets otherwise.
func newLimiter(ctx context.Context, cfg config.Config) (httpapi.Limiter, func(), error) {
	rules := make([]ratelimit.Rule, 0, len(cfg.Throttle))
	for _, rule := range cfg.Throttle {
		rules = append(rules, ratelimit.Rule{Name: rule.Name, Limit: rule.Limit, TTL: rule.TTL})
	}

	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedis(ctx, ratelimit.RedisConfig{Addr: cfg.RedisAddr}, rules)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("throttling with redis", "addr", cfg.RedisAddr)
		return limiter, func() { _ = limiter.Close() }, nil
	}

	limiter, err := ratelimit.NewMemory(rules)
	if err != nil {
		return nil, nil, err
	}
	return limiter, func() {}, nil
}
