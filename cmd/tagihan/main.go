package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tagihan/internal/advice"
	"tagihan/internal/cache"
	"tagihan/internal/cli"
	apphttp "tagihan/internal/http"
	applog "tagihan/internal/log"
	"tagihan/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	loc := cfg.Location()
	advisor := advice.NewAdvisor(cli.NewGenerator(context.Background(), logger, cfg))

	plans := services.NewPlanCache(cfg.PlanCacheSize, cfg.PlanCacheTTL)
	caches := cache.NewManager()
	caches.Register(plans)

	debts := services.NewDebtService(store,
		services.WithLocation(loc),
		services.WithAdvisor(advisor),
		services.WithPlanCache(plans),
	)

	srv := apphttp.NewServer(":"+cfg.Port, debts, apphttp.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Ready:              store.Ping,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, srv.Shutdown)

	caches.Start(ctx, time.Minute)
	defer caches.Stop()

	logger.Info("Starting tagihan server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
